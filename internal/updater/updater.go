// Package updater applies an alias mapping to a dataset.
//
// A run is two-pass: the whole mapping is parsed first, then every pair is
// applied in file order. For each pair the dataset's fields are listed
// again, the field is looked up and its alias altered when present. A
// missing field is reported and skipped. An alias change refused by the
// engine stops the run; earlier changes stay applied.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/fieldalias/internal/mapping"
	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// UpdatedMessage is emitted for a field whose alias was changed.
func UpdatedMessage(field string) string {
	return fmt.Sprintf("Alias updated for field %s", field)
}

// NotFoundMessage is emitted for a mapping row naming an unknown field.
func NotFoundMessage(field string) string {
	return fmt.Sprintf("Table does not contain field %s; alias not updated", field)
}

// PlannedMessage is emitted in dry-run mode for a field that would change.
func PlannedMessage(field string) string {
	return fmt.Sprintf("Alias would be updated for field %s", field)
}

// RejectedMessage is emitted for a field whose alias change was refused.
func RejectedMessage(field string, err error) string {
	return fmt.Sprintf("Alias update rejected for field %s: %v", field, err)
}

// Listener receives every row result as soon as it is known.
type Listener func(core.RowResult)

// Updater applies alias mappings.
type Updater struct {
	Logger *slog.Logger
	// DryRun performs the lookups but never alters a field.
	DryRun bool
	// Listener, when set, is called once per processed row.
	Listener Listener
}

// New creates an Updater. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Updater{Logger: logger}
}

func (u *Updater) log() *slog.Logger {
	if u.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return u.Logger
}

// ApplyFile parses the mapping at path and applies it to ds.
// A mapping that cannot be parsed returns an *core.InputError and no report;
// nothing is written in that case.
func (u *Updater) ApplyFile(ctx context.Context, ds core.Dataset, path string, opts mapping.Options) (*core.Report, error) {
	m, err := mapping.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}

	report, err := u.Apply(ctx, ds, m)
	if report != nil {
		report.Source = path
	}
	return report, err
}

// Apply processes every pair of m against ds in order.
//
// The returned report covers the rows processed so far; it is non-nil even
// when an error is returned. A refused change returns *core.UpdateRejectedError.
func (u *Updater) Apply(ctx context.Context, ds core.Dataset, m core.AliasMapping) (*core.Report, error) {
	logger := u.log().With(slog.String("dataset", ds.Name()))
	report := &core.Report{
		Dataset: ds.Name(),
		DryRun:  u.DryRun,
		Results: make([]core.RowResult, 0, len(m)),
	}

	logger.Debug("applying alias mapping",
		slog.Int("rows", len(m)),
		slog.Any("fields", m.Fields()),
		slog.Bool("dry_run", u.DryRun))

	for _, pair := range m {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := u.applyPair(ctx, ds, pair)
		if res != nil {
			report.Add(*res)
			u.emit(logger, *res)
		}
		if err != nil {
			return report, err
		}
	}

	logger.Debug("alias mapping applied",
		slog.Int("processed", report.Summary.Processed),
		slog.Int("updated", report.Summary.Updated),
		slog.Int("missing", report.Summary.Missing))
	return report, nil
}

func (u *Updater) applyPair(ctx context.Context, ds core.Dataset, pair core.AliasPair) (*core.RowResult, error) {
	fields, err := ds.ListFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields of %s: %w", ds.Name(), err)
	}

	res := &core.RowResult{Line: pair.Line, Field: pair.FieldName, Alias: pair.Alias}

	field, ok := core.LookupField(fields, pair.FieldName, ds.CaseSensitive())
	if !ok {
		res.Status = core.RowStatusNotFound
		res.Message = NotFoundMessage(pair.FieldName)
		return res, nil
	}
	res.PreviousAlias = field.Alias

	if u.DryRun {
		res.Status = core.RowStatusPlanned
		res.Message = PlannedMessage(pair.FieldName)
		return res, nil
	}

	if err := ds.AlterFieldAlias(ctx, field.Name, pair.Alias); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		res.Status = core.RowStatusRejected
		res.Message = RejectedMessage(pair.FieldName, err)
		return res, &core.UpdateRejectedError{Field: pair.FieldName, Alias: pair.Alias, Err: err}
	}

	res.Status = core.RowStatusUpdated
	res.Message = UpdatedMessage(pair.FieldName)
	return res, nil
}

func (u *Updater) emit(logger *slog.Logger, res core.RowResult) {
	attrs := []any{slog.String("field", res.Field), slog.String("status", string(res.Status))}
	if res.Line > 0 {
		attrs = append(attrs, slog.Int("line", res.Line))
	}
	if res.Status == core.RowStatusRejected {
		logger.Error(res.Message, attrs...)
	} else {
		logger.Info(res.Message, attrs...)
	}

	if u.Listener != nil {
		u.Listener(res)
	}
}
