package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scdmix/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent imports or the results of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				results, err := store.Results(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Run     *history.Run     `json:"run"`
						Results []history.Result `json:"results"`
					}{run, results})
				}
				printRunResults(cmd, run, results)
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No imports recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.Manifest,
					string(run.Status),
					strconv.Itoa(run.Targets),
					strconv.Itoa(run.Failed),
					run.StartedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprint(out, renderTable(out, []string{"Run", "Manifest", "Status", "Targets", "Failed", "Started"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printRunResults(cmd *cobra.Command, run *history.Run, results []history.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s (%s)\n", run.ID, run.Manifest, run.Status)
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		detail := shortID(res.Digest)
		if !res.OK() {
			detail = res.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(res.Item),
			strconv.Itoa(res.Target),
			res.Path,
			res.Kind,
			res.Source,
			detail,
		})
	}
	fmt.Fprint(out, renderTable(out, []string{"Item", "Target", "Path", "Status", "Source", "Digest/Error"}, rows,
		[]columnAlignment{alignRight, alignRight}))
	fmt.Fprintln(out)
}
