package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// ErrNotConnected is returned by adapter methods called before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and Exec implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.Log().Debug("closing database connection")
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Log returns the adapter logger, or a discard logger when none was set.
func (b *BaseSQLAdapter) Log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// ParseQualifiedName splits a table reference into schema and name.
// defaultSchema is used when the reference is unqualified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok && s != "" && n != "" {
		return s, n
	}
	return defaultSchema, table
}

// QuoteIdent quotes an SQL identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a string literal for statements that take no bind
// parameters, such as COMMENT ON.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteQualified quotes and joins identifier parts with dots.
func QuoteQualified(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = QuoteIdent(p)
	}
	return strings.Join(quoted, ".")
}
