// Package geopackage provides a GeoPackage adapter for fieldalias.
package geopackage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/leapstack-labs/fieldalias/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// Name is the registered adapter name.
const Name = "geopackage"

const memoryPath = ":memory:"

// Schema extension DDL, GeoPackage 1.3 tables 20 and 22.
const (
	createDataColumnsSQL = `CREATE TABLE IF NOT EXISTS gpkg_data_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	name TEXT,
	title TEXT,
	description TEXT,
	mime_type TEXT,
	constraint_name TEXT,
	CONSTRAINT pk_gdc PRIMARY KEY (table_name, column_name),
	CONSTRAINT gdc_tn UNIQUE (table_name, name)
)`

	createExtensionsSQL = `CREATE TABLE IF NOT EXISTS gpkg_extensions (
	table_name TEXT,
	column_name TEXT,
	extension_name TEXT NOT NULL,
	definition TEXT NOT NULL,
	scope TEXT NOT NULL,
	CONSTRAINT ge_tce UNIQUE (table_name, column_name, extension_name)
)`

	registerSchemaExtensionSQL = `INSERT INTO gpkg_extensions (table_name, column_name, extension_name, definition, scope)
SELECT 'gpkg_data_columns', NULL, 'gpkg_schema', 'http://www.geopackage.org/spec/#extension_schema', 'read-write'
WHERE NOT EXISTS (
	SELECT 1 FROM gpkg_extensions WHERE table_name = 'gpkg_data_columns' AND extension_name = 'gpkg_schema'
)`
)

// Adapter implements the adapter.Adapter interface for GeoPackage files.
// Field aliases live in the gpkg_data_columns table of the schema extension.
type Adapter struct {
	adapter.BaseSQLAdapter
	params Params
}

// New creates a new GeoPackage adapter instance.
// A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		params:         DefaultParams(),
	}
}

// Name returns the registered adapter name.
func (a *Adapter) Name() string { return Name }

// CaseSensitive returns false: SQLite identifiers are case-insensitive.
func (a *Adapter) CaseSensitive() bool { return false }

// Connect opens an existing GeoPackage file.
// Use ":memory:" for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return fmt.Errorf("geopackage path is required\nHint: use <file>.gpkg/<table> or set target.database")
	}

	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	dsn := memoryPath
	if path != memoryPath {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("geopackage %s not found: %w", path, err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}

	a.Log().Debug("opening geopackage", slog.String("path", path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open geopackage: %w", err)
	}
	if path == memoryPath {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping geopackage: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params
	return nil
}

// ListFields returns the columns of table with aliases from gpkg_data_columns.
func (a *Adapter) ListFields(ctx context.Context, table string) ([]core.Field, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	name, err := a.resolveTable(ctx, table)
	if err != nil {
		return nil, err
	}

	aliases, err := a.aliases(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := a.DB.QueryContext(ctx, `SELECT cid, name, type FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fields []core.Field
	for rows.Next() {
		var f core.Field
		var cid int
		if err := rows.Scan(&cid, &f.Name, &f.Type); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		f.Position = cid + 1
		f.Alias = aliases[strings.ToLower(f.Name)]
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	return fields, nil
}

// AlterFieldAlias upserts the alias of field into gpkg_data_columns.
// An empty alias is stored as NULL.
func (a *Adapter) AlterFieldAlias(ctx context.Context, table, field, alias string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	name, err := a.resolveTable(ctx, table)
	if err != nil {
		return err
	}

	var column string
	err = a.DB.QueryRowContext(ctx,
		`SELECT name FROM pragma_table_info(?) WHERE name = ? COLLATE NOCASE`, name, field,
	).Scan(&column)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("field %s not found in %s", field, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query column metadata: %w", err)
	}

	if err := a.ensureDataColumns(ctx); err != nil {
		return err
	}

	var value any
	if alias != "" {
		value = alias
	}

	col := a.params.AliasColumn
	//nolint:gosec // col is validated to be "name" or "title" by ParseParams
	upsert := fmt.Sprintf(`INSERT INTO gpkg_data_columns (table_name, column_name, %[1]s) VALUES (?, ?, ?)
ON CONFLICT (table_name, column_name) DO UPDATE SET %[1]s = excluded.%[1]s`, col)

	if err := a.Exec(ctx, upsert, name, column, value); err != nil {
		return fmt.Errorf("failed to update alias of %s.%s: %w", name, column, err)
	}

	a.Log().Debug("alias updated",
		slog.String("table", name),
		slog.String("field", column),
		slog.String("alias", alias))
	return nil
}

// resolveTable returns the stored name of a table or view.
func (a *Adapter) resolveTable(ctx context.Context, table string) (string, error) {
	var name string
	err := a.DB.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE`, table,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("table %s not found", table)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return name, nil
}

func (a *Adapter) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := a.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return n > 0, nil
}

// aliases returns lower-cased column name to alias for table.
func (a *Adapter) aliases(ctx context.Context, table string) (map[string]string, error) {
	ok, err := a.hasTable(ctx, "gpkg_data_columns")
	if err != nil || !ok {
		return nil, err
	}

	//nolint:gosec // AliasColumn is validated by ParseParams
	query := fmt.Sprintf(`SELECT column_name, %s FROM gpkg_data_columns WHERE table_name = ? COLLATE NOCASE`, a.params.AliasColumn)
	rows, err := a.DB.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query gpkg_data_columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var column string
		var alias sql.NullString
		if err := rows.Scan(&column, &alias); err != nil {
			return nil, fmt.Errorf("failed to scan gpkg_data_columns: %w", err)
		}
		if alias.Valid {
			out[strings.ToLower(column)] = alias.String
		}
	}
	return out, rows.Err()
}

// ensureDataColumns creates the schema extension tables when they are missing.
func (a *Adapter) ensureDataColumns(ctx context.Context) error {
	ok, err := a.hasTable(ctx, "gpkg_data_columns")
	if err != nil || ok {
		return err
	}
	if !a.params.CreateSchemaExtension {
		return fmt.Errorf("gpkg_data_columns table not found\nHint: set target.params.create_schema_extension to true")
	}

	a.Log().Info("creating gpkg_data_columns schema extension")

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{createDataColumnsSQL, createExtensionsSQL, registerSchemaExtensionSQL} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema extension: %w", err)
		}
	}
	return tx.Commit()
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
