// Package duckdb provides a DuckDB database adapter for fieldalias.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/leapstack-labs/fieldalias/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the registered adapter name.
const Name = "duckdb"

// DefaultSchema is used for unqualified table names.
const DefaultSchema = "main"

// Adapter implements the adapter.Adapter interface for DuckDB.
// Field aliases are column comments.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the registered adapter name.
func (a *Adapter) Name() string { return Name }

// CaseSensitive returns false: DuckDB identifiers are case-insensitive.
func (a *Adapter) CaseSensitive() bool { return false }

// Connect establishes a connection to DuckDB.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == ":memory:" {
		path = ""
	}

	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Log().Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		a.Log().Debug("loading duckdb extension", slog.String("extension", ext))
		if err := a.Exec(ctx, "INSTALL "+adapter.QuoteIdent(ext)); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := a.Exec(ctx, "LOAD "+adapter.QuoteIdent(ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", k, adapter.QuoteLiteral(p.Settings[k]))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

func (a *Adapter) defaultSchema() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return DefaultSchema
}

// ListFields returns the columns of table with their comments as aliases.
func (a *Adapter) ListFields(ctx context.Context, table string) ([]core.Field, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	schema, name := adapter.ParseQualifiedName(table, a.defaultSchema())

	rows, err := a.DB.QueryContext(ctx, `
		SELECT column_name, data_type, comment, column_index
		FROM duckdb_columns()
		WHERE lower(schema_name) = lower(?) AND lower(table_name) = lower(?)
		ORDER BY column_index
	`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fields []core.Field
	for rows.Next() {
		var f core.Field
		var comment sql.NullString
		if err := rows.Scan(&f.Name, &f.Type, &comment, &f.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		f.Alias = comment.String
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return fields, nil
}

// AlterFieldAlias sets the comment of a column. An empty alias removes it.
func (a *Adapter) AlterFieldAlias(ctx context.Context, table, field, alias string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	schema, name := adapter.ParseQualifiedName(table, a.defaultSchema())

	var column string
	err := a.DB.QueryRowContext(ctx, `
		SELECT schema_name, table_name, column_name
		FROM duckdb_columns()
		WHERE lower(schema_name) = lower(?) AND lower(table_name) = lower(?) AND lower(column_name) = lower(?)
	`, schema, name, field).Scan(&schema, &name, &column)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("field %s not found in %s", field, table)
	}
	if err != nil {
		return fmt.Errorf("failed to query column metadata: %w", err)
	}

	value := "NULL"
	if alias != "" {
		value = adapter.QuoteLiteral(alias)
	}

	stmt := fmt.Sprintf("COMMENT ON COLUMN %s IS %s", adapter.QuoteQualified(schema, name, column), value)
	if err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to update alias of %s.%s: %w", name, column, err)
	}

	a.Log().Debug("alias updated",
		slog.String("table", schema+"."+name),
		slog.String("field", column),
		slog.String("alias", alias))
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
