package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stemsplit/internal/deps"
	"stemsplit/internal/logging"
	"stemsplit/internal/preflight"
	"stemsplit/internal/publish"
)

type doctorReport struct {
	ConfigPath   string             `json:"config_path"`
	ConfigExists bool               `json:"config_exists"`
	Model        string             `json:"model"`
	Device       string             `json:"device"`
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	Healthy      bool               `json:"healthy"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and optional integrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pub, err := publish.New(cfg, logging.NewNop())
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			report := doctorReport{
				ConfigPath:   ctx.configPath,
				ConfigExists: ctx.configExists,
				Model:        cfg.Separator.Model,
				Device:       cfg.Separator.Device,
				Dependencies: preflight.CheckSystemDeps(cfg),
				Checks:       preflight.RunAll(runCtx, cfg, pub),
			}
			report.Healthy = len(deps.MissingRequired(report.Dependencies)) == 0 && len(preflight.Failed(report.Checks)) == 0

			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, report)
			}
			if !report.Healthy {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func printDoctorReport(cmd *cobra.Command, report doctorReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Configuration", colorize) {
		fmt.Fprintln(out, line)
	}
	configDetail := report.ConfigPath
	configKind := statusOK
	if !report.ConfigExists {
		configDetail += " (not found; defaults in use)"
		configKind = statusInfo
	}
	fmt.Fprintln(out, renderStatusLine("Config", configKind, configDetail, colorize))
	fmt.Fprintln(out, renderStatusLine("Model", statusInfo, report.Model, colorize))
	fmt.Fprintln(out, renderStatusLine("Device", statusInfo, report.Device, colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, status := range report.Dependencies {
		fmt.Fprintln(out, dependencyLine(status, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range report.Checks {
		fmt.Fprintln(out, preflightLine(result, colorize))
	}
}
