package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/leapstack-labs/fieldalias/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded alias runs",
		Long: `List the alias runs recorded in the history database, newest first.

Every apply and revert is recorded unless history is disabled with
history.enabled: false or --no-history. Use "history show <run-id>" for
the per-field outcomes of one run.`,
		Example: `  fieldalias history
  fieldalias history --limit 5 -o json
  fieldalias history show 0b9c3f4e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-field outcomes of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	})

	return cmd
}

func toRunInfo(run *history.Run) output.RunInfo {
	return output.RunInfo{
		ID:          run.ID,
		Dataset:     run.Dataset,
		Adapter:     run.Adapter,
		Source:      run.Source,
		Status:      string(run.Status),
		DryRun:      run.DryRun,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
		Updated:     run.Updated,
		Missing:     run.Missing,
	}
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	c := NewCommandContext(cmd)
	r := c.Renderer

	store, err := c.RequireHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		infos := make([]output.RunInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, toRunInfo(run))
		}
		return r.JSON(output.HistoryOutput{Runs: infos})
	}

	if mode == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Runs"))
		r.Println("")
	} else {
		r.Header(1, "Runs")
	}

	if len(runs) == 0 {
		r.Println("No runs recorded in " + store.Path())
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := string(run.Status)
		if run.DryRun {
			status += " (dry run)"
		}
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Dataset,
			status,
			strconv.Itoa(run.Updated),
			strconv.Itoa(run.Missing),
		})
	}
	r.Table([]string{"Run", "Started", "Dataset", "Status", "Updated", "Missing"}, rows)
	return nil
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	c := NewCommandContext(cmd)
	r := c.Renderer

	store, err := c.RequireHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	results, err := store.GetResults(cmd.Context(), id)
	if err != nil {
		return err
	}

	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(output.RunDetailOutput{Run: toRunInfo(run), Results: results})
	}

	if mode == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Run "+run.ID))
		r.Println("")
	} else {
		r.Header(1, "Run "+run.ID)
	}
	r.Println(output.FormatKeyValue("Dataset", run.Dataset))
	if run.Source != "" {
		r.Println(output.FormatKeyValue("Source", run.Source))
	}
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.DateTime)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{strconv.Itoa(res.Line), res.Field, res.Alias, res.PreviousAlias, string(res.Status)})
	}
	r.Table([]string{"Line", "Field", "Alias", "Previous", "Status"}, rows)
	return nil
}
