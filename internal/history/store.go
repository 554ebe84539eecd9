// Package history records alias runs and their per-field outcomes in SQLite.
// It backs the history and revert commands.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/fieldalias/pkg/core"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrNotOpen is returned when the store is used before Open.
var ErrNotOpen = errors.New("database not opened")

// ErrRunNotFound is wrapped when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// DefaultPath is the history database location relative to the project root.
const DefaultPath = ".fieldalias/history.db"

// RunStatus represents the status of an alias run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one recorded apply or revert.
type Run struct {
	ID          string     `json:"id"`
	Dataset     string     `json:"dataset"`
	Adapter     string     `json:"adapter"`
	Source      string     `json:"source,omitempty"`
	Status      RunStatus  `json:"status"`
	DryRun      bool       `json:"dry_run"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Updated     int        `json:"updated"`
	Missing     int        `json:"missing"`
}

// NewRun describes a run about to start.
type NewRun struct {
	Dataset string
	Adapter string
	Source  string
	DryRun  bool
}

// Store is the SQLite history store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a store. If logger is nil, a discard logger is used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the database at path and applies pending migrations.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping history database: %w", err)
	}
	if err := migrateDB(db); err != nil {
		_ = db.Close()
		return err
	}

	s.logger.Debug("history opened", slog.String("path", path))
	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the path passed to Open.
func (s *Store) Path() string { return s.path }

// CreateRun starts a new run.
func (s *Store) CreateRun(ctx context.Context, nr NewRun) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{
		ID:        uuid.New().String(),
		Dataset:   nr.Dataset,
		Adapter:   nr.Adapter,
		Source:    nr.Source,
		Status:    RunStatusRunning,
		DryRun:    nr.DryRun,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("dataset", run.Dataset))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, adapter, source, status, dry_run, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Adapter, run.Source, string(run.Status), run.DryRun, formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *Store) CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now().UTC()), msg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// AddResults appends row results to a run, after any already recorded.
func (s *Store) AddResults(ctx context.Context, runID string, results []core.RowResult) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM changes WHERE run_id = ?`, runID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read change position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO changes (run_id, position, line, field_name, alias, previous_alias, status, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		next++
		if _, err := stmt.ExecContext(ctx,
			runID, next, r.Line, r.Field, r.Alias, r.PreviousAlias, string(r.Status), r.Message,
		); err != nil {
			return fmt.Errorf("failed to record change for %s: %w", r.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit changes: %w", err)
	}
	return nil
}

const runColumns = `
	r.id, r.dataset, r.adapter, r.source, r.status, r.dry_run, r.started_at, r.completed_at, r.error,
	(SELECT COUNT(*) FROM changes c WHERE c.run_id = r.id AND c.status = 'updated'),
	(SELECT COUNT(*) FROM changes c WHERE c.run_id = r.id AND c.status = 'not_found')`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run         Run
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Dataset, &run.Adapter, &run.Source, &status, &run.DryRun,
		&startedAt, &completedAt, &errMsg, &run.Updated, &run.Missing); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)

	t, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	run.StartedAt = t

	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetResults returns the recorded row results of a run in processing order.
func (s *Store) GetResults(ctx context.Context, runID string) ([]core.RowResult, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT line, field_name, alias, previous_alias, status, message
		 FROM changes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []core.RowResult
	for rows.Next() {
		var r core.RowResult
		var status string
		if err := rows.Scan(&r.Line, &r.Field, &r.Alias, &r.PreviousAlias, &status, &r.Message); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Status = core.RowStatus(status)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
