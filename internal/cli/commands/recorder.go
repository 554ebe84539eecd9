package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/fieldalias/internal/history"
	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// runRecorder writes runs to the history store. Every failure is logged as
// a warning and otherwise ignored: history never aborts an alias update.
type runRecorder struct {
	store  *history.Store
	logger *slog.Logger
}

func newRunRecorder(c *CommandContext) *runRecorder {
	store, err := c.OpenHistory()
	if err != nil {
		c.Logger.Warn("history unavailable", slog.Any("error", err))
		store = nil
	}
	return &runRecorder{store: store, logger: c.Logger}
}

func (rr *runRecorder) begin(ctx context.Context, nr history.NewRun) string {
	if rr.store == nil {
		return ""
	}
	run, err := rr.store.CreateRun(ctx, nr)
	if err != nil {
		rr.logger.Warn("failed to record run", slog.Any("error", err))
		return ""
	}
	return run.ID
}

func (rr *runRecorder) finish(runID string, report *core.Report, runErr error) {
	if rr.store == nil || runID == "" {
		return
	}
	// the run context may already be cancelled
	ctx := context.Background()

	if report != nil {
		if err := rr.store.AddResults(ctx, runID, report.Results); err != nil {
			rr.logger.Warn("failed to record results", slog.String("run", runID), slog.Any("error", err))
		}
	}

	status, msg := history.RunStatusCompleted, ""
	switch {
	case errors.Is(runErr, context.Canceled):
		status, msg = history.RunStatusCancelled, runErr.Error()
	case runErr != nil:
		status, msg = history.RunStatusFailed, runErr.Error()
	}
	if err := rr.store.CompleteRun(ctx, runID, status, msg); err != nil {
		rr.logger.Warn("failed to complete run", slog.String("run", runID), slog.Any("error", err))
	}
}

func (rr *runRecorder) close() {
	if rr.store != nil {
		_ = rr.store.Close()
	}
}
