package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scdmix/internal/config"
	"scdmix/internal/deps"
	"scdmix/internal/history"
	"scdmix/internal/importer"
	"scdmix/internal/logging"
	"scdmix/internal/manifest"
	"scdmix/internal/output"
	"scdmix/internal/services"
)

type importOptions struct {
	dirs       []string
	roots      []string
	originals  []string
	outputDir  string
	workers    int
	sampleRate int
	preview    bool
	dryRun     bool
	jsonOutput bool
}

// importRow is one output path of one target.
type importRow struct {
	Manifest   string `json:"manifest"`
	Item       int    `json:"item"`
	Target     int    `json:"target"`
	Path       string `json:"path"`
	Status     string `json:"status"`
	Source     string `json:"source,omitempty"`
	Error      string `json:"error,omitempty"`
	Frames     int    `json:"frames,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	LoopStart  int    `json:"loop_start,omitempty"`
	LoopEnd    int    `json:"loop_end,omitempty"`
	Digest     string `json:"digest,omitempty"`
	Change     string `json:"change,omitempty"`
	Preview    string `json:"preview,omitempty"`
}

type importReport struct {
	RunID string      `json:"run_id"`
	Rows  []importRow `json:"results"`
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <manifest>...",
		Short: "Merge the targets of one or more manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, ctx, opts, args)
		},
	}

	cmd.Flags().StringArrayVar(&opts.dirs, "dir", nil, "Map a search directory name to a path (name=path, repeatable)")
	cmd.Flags().StringArrayVar(&opts.roots, "root", nil, "Search root for default directories (repeatable, overrides config)")
	cmd.Flags().StringArrayVar(&opts.originals, "original", nil, "Existing container replaced by an output path (output-path=file.scd, repeatable)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Directory that output paths are relative to")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Targets merged concurrently (default from config)")
	cmd.Flags().IntVar(&opts.sampleRate, "sample-rate", 0, "Force the output sample rate in Hz")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "Also write a WAV preview of every target")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Merge without writing containers")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runImport(cmd *cobra.Command, ctx *commandContext, opts importOptions, manifests []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := applyImportFlags(cfg, &opts); err != nil {
		return err
	}
	if err := deps.RequireAvailable(deps.CheckBinaries(deps.ToolRequirements(cfg))); err != nil {
		return err
	}
	mappings, err := parseDirMappings(opts.dirs)
	if err != nil {
		return err
	}
	originals, err := loadOriginals(opts.originals)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock, err := output.AcquireLock(cfg.Paths.StateDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	backend, logger, err := ctx.backend(cmd)
	if err != nil {
		return err
	}
	sink := &output.FileSink{Root: cfg.Import.OutputDir, DryRun: opts.dryRun}

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}

	seen := make(map[string]bool)
	var reports []importReport
	failed, total := 0, 0
	for _, path := range manifests {
		report, err := importManifest(base, importJob{
			cfg:       cfg,
			opts:      opts,
			path:      path,
			mappings:  mappings,
			originals: originals,
			seen:      seen,
			backend:   backend,
			logger:    logger,
			store:     store,
			sink:      sink,
		})
		if err != nil {
			return err
		}
		for _, row := range report.Rows {
			if row.Status != "ok" {
				failed++
			}
		}
		total += len(report.Rows)
		reports = append(reports, report)
	}
	if unused := originals.unused(seen); len(unused) > 0 {
		logging.WarnWithContext(logger, "originals unused", "originals_unused",
			logging.Strings("paths", unused),
			logging.String(logging.FieldErrorHint, "use an output path exactly as written in the manifest"),
		)
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd, reports); err != nil {
			return err
		}
	} else {
		printImportReports(cmd, reports)
		verb := "written"
		if opts.dryRun {
			verb = "planned (dry run)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) %s\n", len(sink.Written()), verb)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d outputs failed", failed, total)
	}
	return nil
}

func applyImportFlags(cfg *config.Config, opts *importOptions) error {
	if len(opts.roots) > 0 {
		roots := make([]string, 0, len(opts.roots))
		for _, root := range opts.roots {
			expanded, err := config.ExpandPath(root)
			if err != nil {
				return fmt.Errorf("resolve --root: %w", err)
			}
			roots = append(roots, expanded)
		}
		cfg.Import.SearchRoots = roots
	}
	if strings.TrimSpace(opts.outputDir) != "" {
		expanded, err := config.ExpandPath(opts.outputDir)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
		cfg.Import.OutputDir = expanded
	}
	if opts.workers != 0 {
		cfg.Import.Workers = opts.workers
	}
	if opts.sampleRate != 0 {
		cfg.Import.SampleRate = opts.sampleRate
	}
	return cfg.Validate()
}

type importJob struct {
	cfg       *config.Config
	opts      importOptions
	path      string
	mappings  []dirMapping
	originals originalSet
	// seen collects the originals some target was bound to.
	seen    map[string]bool
	backend importer.Backend
	logger  *slog.Logger
	store   *history.Store
	sink    *output.FileSink
}

func importManifest(ctx context.Context, job importJob) (importReport, error) {
	m, err := manifest.Load(job.path)
	if err != nil {
		return importReport{}, services.Wrap(services.ErrConfiguration, "import", "load manifest", job.path, err)
	}
	run, err := job.store.BeginRun(ctx, job.path)
	if err != nil {
		return importReport{}, err
	}
	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, job.logger)
	plan := searchPlan(m, job.mappings, job.cfg.Import.SearchRoots)
	report := importReport{RunID: run.ID}

	for itemIndex, item := range m.Items {
		itemCtx := services.WithItem(ctx, itemIndex)
		for partIndex, part := range splitByOriginal(item, job.originals, job.seen) {
			im := importer.New(part.item, importer.Options{
				SampleRate:  job.cfg.Import.SampleRate,
				Workers:     job.cfg.Import.Workers,
				Backend:     job.backend,
				Logger:      job.logger,
				KeepSamples: job.opts.preview,
			})
			im.AppendReader(part.original)
			if err := resolveItem(im, plan); err != nil {
				return report, err
			}
			if missing := im.Resolver().Unresolved(); len(missing) > 0 && partIndex == 0 {
				logging.WarnWithContext(logging.WithContext(itemCtx, logger), "sources unresolved", "sources_unresolved",
					logging.String("sources", strings.Join(missing, ",")),
					logging.String(logging.FieldErrorHint, "pass --dir name=path or add files to a default directory"),
					logging.String(logging.FieldImpact, "targets using these sources are skipped"),
				)
			}

			for _, res := range im.Merge(itemCtx, job.sink.Emit) {
				rows, err := recordTarget(itemCtx, job, run.ID, itemIndex, res)
				if err != nil {
					return report, err
				}
				report.Rows = append(report.Rows, rows...)
			}
		}
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.Item != b.Item {
			return a.Item < b.Item
		}
		return a.Target < b.Target
	})

	finished, err := job.store.FinishRun(ctx, run.ID)
	if err != nil {
		return report, err
	}
	logger.Info("import finished",
		logging.String("manifest", job.path),
		logging.String("status", string(finished.Status)),
		logging.Int("targets", finished.Targets),
		logging.Int("failed", finished.Failed),
	)
	return report, nil
}

func recordTarget(ctx context.Context, job importJob, runID string, item int, res importer.TargetResult) ([]importRow, error) {
	kind := services.Kind(res.Err)
	var rows []importRow
	for i, path := range res.Paths {
		row := importRow{
			Manifest: job.path,
			Item:     item,
			Target:   res.Index,
			Path:     path,
			Status:   kind,
			Source:   res.Source,
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		} else {
			row.Frames = res.Frames
			row.Channels = res.Channels
			row.SampleRate = res.SampleRate
			row.LoopStart = res.LoopStart
			row.LoopEnd = res.LoopEnd
			row.Digest = res.Digest

			prev, ok, err := job.store.LastDigest(ctx, path, runID)
			if err != nil {
				return nil, err
			}
			switch {
			case !ok:
				row.Change = "new"
			case prev == res.Digest:
				row.Change = "unchanged"
			default:
				row.Change = "changed"
			}
			if job.opts.preview && i == 0 && !job.opts.dryRun {
				dest, err := output.WritePreview(job.cfg.Import.PreviewDir, path, res.Samples, res.SampleRate, res.Channels)
				if err != nil {
					return nil, err
				}
				row.Preview = dest
			}
		}
		if err := job.store.RecordResult(ctx, runID, history.Result{
			Item:       item,
			Target:     res.Index,
			Path:       path,
			Kind:       kind,
			Source:     row.Source,
			Error:      row.Error,
			Digest:     row.Digest,
			Frames:     row.Frames,
			Channels:   row.Channels,
			SampleRate: row.SampleRate,
			LoopStart:  row.LoopStart,
			LoopEnd:    row.LoopEnd,
		}); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func printImportReports(cmd *cobra.Command, reports []importReport) {
	out := cmd.OutOrStdout()
	headers := []string{"Item", "Target", "Path", "Status", "Frames", "Loop", "Digest", "Change"}
	aligns := []columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
	for _, report := range reports {
		if len(report.Rows) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s (run %s)\n", report.Rows[0].Manifest, shortID(report.RunID))
		rows := make([][]string, 0, len(report.Rows))
		var failures []importRow
		for _, row := range report.Rows {
			status := row.Status
			if row.Source != "" && row.Status != "ok" {
				status = fmt.Sprintf("%s (%s)", row.Status, row.Source)
			}
			loop := "-"
			if row.LoopEnd > row.LoopStart {
				loop = fmt.Sprintf("%d-%d", row.LoopStart, row.LoopEnd)
			}
			rows = append(rows, []string{
				strconv.Itoa(row.Item),
				strconv.Itoa(row.Target),
				row.Path,
				status,
				strconv.Itoa(row.Frames),
				loop,
				shortID(row.Digest),
				row.Change,
			})
			if row.Error != "" {
				failures = append(failures, row)
			}
		}
		fmt.Fprint(out, renderTable(out, headers, rows, aligns))
		fmt.Fprintln(out)
		for _, row := range failures {
			fmt.Fprintf(out, "  %s: %s\n", row.Path, row.Error)
		}
	}
}

func shortID(value string) string {
	if len(value) > 8 {
		return value[:8]
	}
	return value
}
