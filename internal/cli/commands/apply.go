package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/leapstack-labs/fieldalias/internal/history"
	"github.com/leapstack-labs/fieldalias/internal/mapping"
	"github.com/leapstack-labs/fieldalias/internal/updater"
	"github.com/leapstack-labs/fieldalias/internal/watch"
	"github.com/leapstack-labs/fieldalias/pkg/core"
	"github.com/spf13/cobra"
)

// ApplyOptions holds options for the apply command.
type ApplyOptions struct {
	DryRun bool
	Watch  bool
}

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	opts := &ApplyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <input_table_or_feature_class> <input_csv_path>",
		Short: "Update field aliases from a CSV mapping",
		Long: `Update the aliases of a dataset's fields from a two-column CSV file.

Each row holds a field name and the alias it should carry; extra columns
are ignored. The whole file is read before any field is touched, so a
malformed row aborts the run without changes. Rows naming fields that are
not in the dataset are reported and skipped. If the database refuses an
alias the run stops; rows already applied are kept.

The first row is data unless --skip-header is given.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Update aliases of a GeoPackage layer
  fieldalias apply data/parcels.gpkg/parcels aliases.csv

  # Preview without writing
  fieldalias apply data/parcels.gpkg/parcels aliases.csv --dry-run

  # A table on the configured target, semicolon separated, Latin-1 file
  fieldalias apply gis.parcels aliases.csv --delimiter ';' --encoding latin1

  # Re-apply whenever the CSV is saved
  fieldalias apply data/parcels.gpkg/parcels aliases.csv --watch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Look up fields without changing any alias")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-apply the mapping every time the CSV changes")
	cmd.Flags().String("delimiter", "", "CSV column delimiter, a single character or \"tab\" (default \",\")")
	cmd.Flags().String("encoding", "", "CSV encoding label, e.g. utf-8, windows-1252, utf-16le (default \"utf-8\")")
	cmd.Flags().Bool("skip-header", false, "Treat the first CSV row as a header")
	cmd.Flags().Bool("trim-space", false, "Trim whitespace around field names and aliases")

	return cmd
}

func runApply(cmd *cobra.Command, datasetRef, csvPath string, opts *ApplyOptions) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mopts, err := c.MappingOptions()
	if err != nil {
		return err
	}

	ds, err := c.OpenDataset(ctx, datasetRef)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()

	rec := newRunRecorder(c)
	defer rec.close()

	apply := func(ctx context.Context) error {
		return applyOnce(ctx, c, rec, ds, csvPath, mopts, opts.DryRun)
	}

	if !opts.Watch {
		return apply(ctx)
	}

	w, err := watch.Start(csvPath, watch.DefaultDebounce, c.Logger)
	if err != nil {
		return err
	}
	if err := apply(ctx); err != nil {
		c.Renderer.Error(err.Error())
	}
	if c.Renderer.EffectiveMode() != output.ModeJSON {
		c.Renderer.Muted("Watching " + w.Path() + " for changes (Ctrl+C to stop)")
	}
	return w.Run(ctx, func(ctx context.Context) error {
		if err := apply(ctx); err != nil {
			c.Renderer.Error(err.Error())
		}
		return nil
	})
}

// applyOnce performs one full parse-then-apply run and renders its report.
func applyOnce(ctx context.Context, c *CommandContext, rec *runRecorder, ds *OpenedDataset, csvPath string, mopts mapping.Options, dryRun bool) error {
	r := c.Renderer
	mode := r.EffectiveMode()

	u := updater.New(c.Logger)
	u.DryRun = dryRun
	if mode == output.ModeText {
		r.Header(1, "Aliases: "+ds.Name())
		u.Listener = func(res core.RowResult) {
			r.StatusLine(res.Field, string(res.Status), res.Message)
		}
	}

	runID := rec.begin(ctx, history.NewRun{
		Dataset: ds.Name(),
		Adapter: ds.Adapter,
		Source:  csvPath,
		DryRun:  dryRun,
	})

	report, err := u.ApplyFile(ctx, ds, csvPath, mopts)
	rec.finish(runID, report, err)

	if report == nil {
		return err
	}

	c.Logger.Debug("apply finished",
		slog.String("run", runID),
		slog.Int("processed", report.Summary.Processed))

	switch mode {
	case output.ModeJSON:
		out := output.ApplyOutput{RunID: runID, Report: report}
		if err != nil {
			out.Error = err.Error()
		}
		if jerr := r.JSON(out); jerr != nil {
			return jerr
		}
	case output.ModeMarkdown:
		reportMarkdown(r, report, runID)
	default:
		reportSummaryText(r, report, runID)
	}
	return err
}

// reportSummaryText prints the summary after streamed rows.
func reportSummaryText(r *output.Renderer, report *core.Report, runID string) {
	r.Println("")
	s := report.Summary
	if report.DryRun {
		r.Muted(fmt.Sprintf("Dry run: %d processed, %d would be updated, %d missing", s.Processed, s.Planned, s.Missing))
	} else {
		r.Muted(fmt.Sprintf("%d processed, %d updated, %d missing", s.Processed, s.Updated, s.Missing))
	}
	if runID != "" {
		r.Muted("Run: " + runID)
	}
}

// reportMarkdown prints a full report as markdown.
func reportMarkdown(r *output.Renderer, report *core.Report, runID string) {
	title := "Alias Update"
	if report.DryRun {
		title = "Alias Update (dry run)"
	}
	r.Println(output.FormatHeader(1, title))
	r.Println("")
	r.Println(output.FormatKeyValue("Dataset", report.Dataset))
	if report.Source != "" {
		r.Println(output.FormatKeyValue("Source", report.Source))
	}
	if runID != "" {
		r.Println(output.FormatKeyValue("Run", runID))
	}
	r.Println("")

	for _, msg := range report.Messages() {
		r.Println("- " + msg)
	}
	r.Println("")

	if len(report.Results) > 0 {
		rows := make([][]string, 0, len(report.Results))
		for _, res := range report.Results {
			rows = append(rows, []string{
				strconv.Itoa(res.Line), res.Field, res.Alias, res.PreviousAlias, string(res.Status),
			})
		}
		r.Table([]string{"Line", "Field", "Alias", "Previous", "Status"}, rows)
		r.Println("")
	}

	s := report.Summary
	r.Printf("**Processed:** %d | **Updated:** %d | **Missing:** %d", s.Processed, s.Updated, s.Missing)
	if report.DryRun {
		r.Printf(" | **Planned:** %d", s.Planned)
	}
	if s.Rejected > 0 {
		r.Printf(" | **Rejected:** %d", s.Rejected)
	}
	r.Println("")
}
