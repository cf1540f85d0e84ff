package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scdmix/internal/config"
	"scdmix/internal/importer"
	"scdmix/internal/manifest"
)

type resolveRow struct {
	Item   int      `json:"item"`
	Source string   `json:"source"`
	Files  []string `json:"files"`
}

type resolveReport struct {
	Manifest string       `json:"manifest"`
	Sources  []resolveRow `json:"sources"`
	Hints    []string     `json:"purchase_links,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var dirs, roots []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve <manifest>...",
		Short: "Show which files each source resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mappings, err := parseDirMappings(dirs)
			if err != nil {
				return err
			}
			searchRoots := cfg.Import.SearchRoots
			if len(roots) > 0 {
				searchRoots = nil
				for _, root := range roots {
					expanded, err := config.ExpandPath(root)
					if err != nil {
						return err
					}
					searchRoots = append(searchRoots, expanded)
				}
			}

			var reports []resolveReport
			unresolved := 0
			for _, path := range args {
				m, err := manifest.Load(path)
				if err != nil {
					return err
				}
				plan := searchPlan(m, mappings, searchRoots)
				report := resolveReport{Manifest: path}
				for i, item := range m.Items {
					im := importer.New(item, importer.Options{})
					if err := resolveItem(im, plan); err != nil {
						return err
					}
					resolved := im.Resolver().All()
					for _, name := range sortedSourceNames(item) {
						files := resolved[name]
						if len(files) == 0 {
							unresolved++
						}
						report.Sources = append(report.Sources, resolveRow{Item: i, Source: name, Files: files})
					}
				}
				if unresolved > 0 {
					report.Hints = purchaseHints(m)
				}
				reports = append(reports, report)
			}

			if jsonOutput {
				return writeJSON(cmd, reports)
			}
			out := cmd.OutOrStdout()
			for _, report := range reports {
				fmt.Fprintln(out, report.Manifest)
				rows := make([][]string, 0, len(report.Sources))
				for _, src := range report.Sources {
					files := "unresolved"
					if len(src.Files) > 0 {
						files = strings.Join(src.Files, ", ")
					}
					rows = append(rows, []string{strconv.Itoa(src.Item), src.Source, files})
				}
				fmt.Fprint(out, renderTable(out, []string{"Item", "Source", "Files"}, rows, []columnAlignment{alignRight}))
				fmt.Fprintln(out)
				for _, hint := range report.Hints {
					fmt.Fprintf(out, "  %s\n", hint)
				}
			}
			if unresolved > 0 {
				fmt.Fprintf(out, "%d source(s) unresolved\n", unresolved)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&dirs, "dir", nil, "Map a search directory name to a path (name=path, repeatable)")
	cmd.Flags().StringArrayVar(&roots, "root", nil, "Search root for default directories (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func sortedSourceNames(item manifest.Item) []string {
	names := make([]string, 0, len(item.Source))
	for name := range item.Source {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
