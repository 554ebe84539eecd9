// Package postgres provides a PostgreSQL database adapter for fieldalias.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// Name is the registered adapter name.
const Name = "postgres"

// DefaultSchema is used for unqualified table names.
const DefaultSchema = "public"

const listFieldsSQL = `
	SELECT
		a.attname,
		format_type(a.atttypid, a.atttypmod),
		COALESCE(col_description(a.attrelid, a.attnum), ''),
		a.attnum
	FROM pg_attribute a
	JOIN pg_class c ON c.oid = a.attrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
	ORDER BY a.attnum
`

// Adapter implements the adapter.Adapter interface for PostgreSQL and PostGIS.
// Field aliases are column comments.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the registered adapter name.
func (a *Adapter) Name() string { return Name }

// CaseSensitive returns true: the catalog stores identifiers verbatim.
func (a *Adapter) CaseSensitive() bool { return true }

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres connection settings: %w", err)
	}

	a.Log().Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + quoteDSNValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteDSNValue(cfg.Database),
		"sslmode=" + quoteDSNValue(sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+quoteDSNValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.Password))
	}

	// remaining options pass through in a stable order
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteDSNValue(cfg.Options[k]))
	}

	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a keyword/value connection string value when needed.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
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

	rows, err := a.DB.QueryContext(ctx, listFieldsSQL, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fields []core.Field
	for rows.Next() {
		var f core.Field
		if err := rows.Scan(&f.Name, &f.Type, &f.Alias, &f.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
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

	value := "NULL"
	if alias != "" {
		value = adapter.QuoteLiteral(alias)
	}

	stmt := fmt.Sprintf("COMMENT ON COLUMN %s IS %s", adapter.QuoteQualified(schema, name, field), value)
	if err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to update alias of %s.%s: %w", name, field, err)
	}

	a.Log().Debug("alias updated",
		slog.String("table", schema+"."+name),
		slog.String("field", field),
		slog.String("alias", alias))
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
