package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stemsplit/internal/separation"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the supported separation models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			models := separation.Models()
			if jsonOut {
				return writeJSON(cmd, struct {
					Default    string                 `json:"default"`
					Configured string                 `json:"configured"`
					Models     []separation.ModelInfo `json:"models"`
				}{separation.DefaultModel, cfg.Separator.Model, models})
			}

			rows := make([][]string, 0, len(models))
			for _, m := range models {
				marker := ""
				if m.Name == cfg.Separator.Model {
					marker = "*"
				}
				rows = append(rows, []string{marker, m.Name, m.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"", "Model", "Description"}, rows, nil))
			fmt.Fprintf(cmd.OutOrStdout(), "Default: %s (* marks separator.model)\n", separation.DefaultModel)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the catalogue as JSON")
	return cmd
}
