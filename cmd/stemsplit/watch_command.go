package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stemsplit/internal/config"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/services"
	"stemsplit/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var output string
	var quiet time.Duration
	var existing bool

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Split audio files as they are added to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if output = strings.TrimSpace(output); output != "" {
				if output, err = config.ExpandPath(output); err != nil {
					return err
				}
			}

			lock, err := ctx.acquireLock()
			if err != nil {
				return err
			}
			defer lock.Release()

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			splitter, store, err := pipeline.Build(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", dir)
			w := watch.New(watch.Options{
				Dir:        dir,
				OutputRoot: output,
				Quiet:      quiet,
				Existing:   existing,
				OnResult: func(result pipeline.JobResult) {
					name := filepath.Base(result.Input)
					if result.OK {
						fmt.Fprintln(out, renderStatusLine(name, statusOK, result.OutputDir, colorize))
						return
					}
					fmt.Fprintln(out, renderStatusLine(name, statusError, services.Kind(result.Err), colorize))
				},
			}, splitter, logger)
			return w.Run(runCtx)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output root; each file goes to <root>/<name>")
	cmd.Flags().DurationVar(&quiet, "quiet", watch.DefaultQuiet, "How long a file must stay unchanged before it is split")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also split supported files already in DIR")
	return cmd
}
