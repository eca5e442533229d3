package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stemsplit/internal/audio"
	"stemsplit/internal/config"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/separation"
	"stemsplit/internal/services"
)

type splitOptions struct {
	output string
	model  string
	device string
	batch  bool
	json   bool
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "split INPUT",
		Short: "Separate an audio file (or every file in a directory) into stems",
		Long: `Separate an audio file into drums, bass, other and vocals stems.

A single file writes {name}_{stem}.wav into <input dir>/<name>_stems unless
--output (or paths.output_dir) is set. A directory, or --batch, splits every
supported file directly inside it into <dir>/stems/<name>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg, err := applySplitOverrides(cfg, opts)
			if err != nil {
				return err
			}

			input, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			batch, err := resolveBatchMode(input, opts.batch)
			if err != nil {
				return err
			}
			output := strings.TrimSpace(opts.output)
			if output != "" {
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
			var reporter pipeline.Reporter
			if !opts.json {
				reporter = newProgressReporter(cmd.ErrOrStderr())
			}
			splitter, store, err := pipeline.Build(runCfg, logger, reporter)
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			if batch {
				result := splitter.SplitDir(runCtx, input, output)
				finishProgress(reporter)
				if opts.json {
					if err := writeJSON(cmd, result.Summary()); err != nil {
						return err
					}
				} else {
					printBatchSummary(cmd.OutOrStdout(), result)
				}
				return result.Err
			}

			result := splitter.SplitFile(runCtx, input, output)
			finishProgress(reporter)
			if opts.json {
				if err := writeJSON(cmd, result.Summary()); err != nil {
					return err
				}
			} else {
				printJobSummary(cmd.OutOrStdout(), result)
			}
			if !result.OK {
				return fmt.Errorf("split %s: %w", filepath.Base(input), result.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (batch: output root)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Separation model (see `stemsplit models`)")
	cmd.Flags().StringVarP(&opts.device, "device", "d", "", "Device: auto, cpu, cuda or mps")
	cmd.Flags().BoolVarP(&opts.batch, "batch", "b", false, "Treat INPUT as a directory of audio files")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	return cmd
}

// applySplitOverrides returns a copy of cfg with the model and device flags
// applied and checked.
func applySplitOverrides(cfg *config.Config, opts splitOptions) (*config.Config, error) {
	runCfg := *cfg
	if model := strings.ToLower(strings.TrimSpace(opts.model)); model != "" {
		if !separation.IsKnownModel(model) {
			return nil, services.Wrap(services.ErrConfiguration, "split", "model", fmt.Sprintf("unknown model %q (run 'stemsplit models')", model), nil)
		}
		runCfg.Separator.Model = model
	}
	if device := strings.ToLower(strings.TrimSpace(opts.device)); device != "" {
		switch device {
		case separation.DeviceAuto, separation.DeviceCPU, separation.DeviceCUDA, separation.DeviceMPS:
		default:
			return nil, services.Wrap(services.ErrConfiguration, "split", "device", fmt.Sprintf("unsupported device %q", device), nil)
		}
		runCfg.Separator.Device = device
	}
	return &runCfg, nil
}

func resolveBatchMode(input string, forced bool) (bool, error) {
	info, err := os.Stat(input)
	if err != nil {
		if forced {
			return false, services.Wrap(services.ErrNotFound, "split", "batch", input, err)
		}
		// Single-file jobs report missing inputs through the job result.
		return false, nil
	}
	if forced && !info.IsDir() {
		return false, errors.New("--batch requires a directory")
	}
	return info.IsDir(), nil
}

func printJobSummary(out io.Writer, result pipeline.JobResult) {
	colorize := shouldColorize(out)
	if !result.OK {
		fmt.Fprintln(out, renderStatusLine(filepath.Base(result.Input), statusError, services.Kind(result.Err), colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine(filepath.Base(result.Input), statusOK, "split in "+result.Duration.Round(time.Second).String(), colorize))
	fmt.Fprintf(out, "%sOutput: %s\n", statusIndent, result.OutputDir)
	for _, path := range result.Stems {
		label := "Stem"
		if stem, ok := audio.StemOfFile(path); ok {
			label = stem.Label()
		}
		fmt.Fprintf(out, "%s  %-7s %s\n", statusIndent, label, filepath.Base(path))
	}
	if len(result.Uploaded) > 0 {
		fmt.Fprintf(out, "%sUploaded %d objects\n", statusIndent, len(result.Uploaded))
	}
}

func printBatchSummary(out io.Writer, result pipeline.BatchResult) {
	if result.Err != nil {
		return
	}
	total := len(result.Results)
	if total == 0 && !result.Canceled {
		fmt.Fprintf(out, "No supported audio files found in %s\n", result.Dir)
		return
	}

	rows := make([][]string, 0, total)
	for _, job := range result.Results {
		status := "ok"
		detail := fmt.Sprintf("%d stems", len(job.Stems))
		if !job.OK {
			status = "failed"
			detail = services.Kind(job.Err)
		}
		rows = append(rows, []string{
			filepath.Base(job.Input),
			status,
			detail,
			job.Duration.Round(time.Second).String(),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Status", "Detail", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))

	summary := fmt.Sprintf("%d of %d files split into %s in %s", result.Succeeded, total, result.OutputRoot, result.Duration.Round(time.Second))
	kind := statusOK
	if result.Failed > 0 {
		summary += fmt.Sprintf(" (%d failed; see the log for details)", result.Failed)
		kind = statusWarn
	}
	if result.Canceled {
		summary += " (canceled)"
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Batch", kind, summary, shouldColorize(out)))
}
