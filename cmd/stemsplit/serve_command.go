package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stemsplit/internal/api"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/session"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP control surface",
		Long: `Run the local HTTP control surface.

POST /api/jobs starts one split at a time; GET /api/status and the
/api/events websocket report progress.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind = strings.TrimSpace(bind); bind == "" {
				bind = cfg.Server.Bind
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

			hub := session.NewHub(0)
			splitter, store, err := pipeline.Build(cfg, logger, hub)
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			ctrl := session.NewController(runCtx, splitter, hub, logger)
			var lister api.HistoryLister
			if store != nil {
				lister = store
			}
			server, err := api.NewServer(bind, ctrl, lister, splitter.Model(), logger)
			if err != nil {
				return err
			}
			if err := server.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (Ctrl-C to stop)\n", server.Addr())

			<-runCtx.Done()
			server.Stop()
			ctrl.Wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default server.bind)")
	return cmd
}
