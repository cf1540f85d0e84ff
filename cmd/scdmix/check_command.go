package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scdmix/internal/config"
	"scdmix/internal/deps"
)

type checkReport struct {
	ConfigPath   string        `json:"config_path"`
	ConfigExists bool          `json:"config_exists"`
	StateDir     string        `json:"state_dir"`
	Binaries     []deps.Status `json:"binaries"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			_, path, exists, err := config.Load(configPathFlag(ctx))
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.ToolRequirements(cfg))
			report := checkReport{
				ConfigPath:   path,
				ConfigExists: exists,
				StateDir:     cfg.Paths.StateDir,
				Binaries:     statuses,
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Config: %s", path)
				if !exists {
					fmt.Fprint(out, " (not found, defaults in use)")
				}
				fmt.Fprintf(out, "\nState:  %s\n", cfg.Paths.StateDir)
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					state, location := "ok", status.Path
					if !status.Available {
						state, location = "missing", status.Command
					}
					rows = append(rows, []string{status.Name, location, state, status.Detail})
				}
				fmt.Fprint(out, renderTable(out, []string{"Tool", "Command", "Status", "Detail"}, rows, nil))
				fmt.Fprintln(out)
			}
			return deps.RequireAvailable(statuses)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func configPathFlag(ctx *commandContext) string {
	if ctx.configFlag == nil {
		return ""
	}
	return *ctx.configFlag
}
