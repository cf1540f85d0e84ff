package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scdmix/internal/config"
	"scdmix/internal/media/ffmpeg"
)

type probeRow struct {
	Path       string `json:"path"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Format     string `json:"format,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Inspect the audio streams of source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := ctx.backend(cmd)
			if err != nil {
				return err
			}
			rows := make([]probeRow, 0, len(args))
			failed := 0
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				row := probeRow{Path: path}
				info, err := backend.Probe(cmd.Context(), ffmpeg.Input{Paths: []string{path}})
				if err != nil {
					row.Error = err.Error()
					failed++
				} else {
					row.SampleRate, row.Channels, row.Format = info.SampleRate, info.Channels, info.Format
				}
				rows = append(rows, row)
			}

			if jsonOutput {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					if row.Error != "" {
						table = append(table, []string{row.Path, "-", "-", row.Error})
						continue
					}
					table = append(table, []string{row.Path, strconv.Itoa(row.SampleRate), strconv.Itoa(row.Channels), row.Format})
				}
				fmt.Fprint(out, renderTable(out, []string{"File", "Rate", "Channels", "Format"}, table,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
				fmt.Fprintln(out)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be probed", failed, len(rows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
