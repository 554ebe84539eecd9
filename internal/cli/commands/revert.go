package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/leapstack-labs/fieldalias/internal/history"
	"github.com/leapstack-labs/fieldalias/internal/updater"
	"github.com/leapstack-labs/fieldalias/pkg/core"
	"github.com/spf13/cobra"
)

// NewRevertCommand creates the revert command.
func NewRevertCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "revert <run-id>",
		Short: "Restore the aliases a recorded run replaced",
		Long: `Restore the aliases that a recorded run replaced.

The updated fields of the run are set back to their previous aliases, the
last change first. A field that had no alias has it cleared. The revert is
itself recorded as a new run.`,
		Example: `  fieldalias history
  fieldalias revert 0b9c3f4e-... --dry-run
  fieldalias revert 0b9c3f4e-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevert(cmd, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Look up fields without changing any alias")

	return cmd
}

// revertMapping rebuilds the mapping that undoes the updated rows of a run.
func revertMapping(results []core.RowResult) core.AliasMapping {
	var m core.AliasMapping
	for i := len(results) - 1; i >= 0; i-- {
		res := results[i]
		if res.Status != core.RowStatusUpdated {
			continue
		}
		m = append(m, core.AliasPair{FieldName: res.Field, Alias: res.PreviousAlias, Line: res.Line})
	}
	return m
}

func runRevert(cmd *cobra.Command, id string, dryRun bool) error {
	c := NewCommandContext(cmd)
	r := c.Renderer
	ctx := cmd.Context()

	store, err := c.RequireHistory()
	if err != nil {
		return err
	}
	run, err := store.GetRun(ctx, id)
	if err != nil {
		_ = store.Close()
		return err
	}
	results, err := store.GetResults(ctx, id)
	_ = store.Close()
	if err != nil {
		return err
	}

	if run.DryRun {
		return fmt.Errorf("run %s was a dry run; nothing to revert", id)
	}
	m := revertMapping(results)
	if len(m) == 0 {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(output.ApplyOutput{Report: &core.Report{Dataset: run.Dataset, DryRun: dryRun, Results: []core.RowResult{}}})
		}
		r.Warning("Run " + id + " updated no fields; nothing to revert")
		return nil
	}

	ds, err := c.OpenDataset(ctx, run.Dataset)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()
	if run.Adapter != "" && run.Adapter != ds.Adapter {
		c.Logger.Warn("reverting on a different adapter than recorded",
			slog.String("recorded", run.Adapter), slog.String("current", ds.Adapter))
	}

	rec := newRunRecorder(c)
	defer rec.close()

	u := updater.New(c.Logger)
	u.DryRun = dryRun
	mode := r.EffectiveMode()
	if mode == output.ModeText {
		r.Header(1, "Revert "+id+": "+ds.Name())
		u.Listener = func(res core.RowResult) {
			r.StatusLine(res.Field, string(res.Status), res.Message)
		}
	}

	source := "revert:" + id
	runID := rec.begin(ctx, history.NewRun{Dataset: ds.Name(), Adapter: ds.Adapter, Source: source, DryRun: dryRun})
	report, err := u.Apply(ctx, ds, m)
	report.Source = source
	rec.finish(runID, report, err)

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
