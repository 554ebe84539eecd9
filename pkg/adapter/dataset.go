package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// Dataset binds a connected adapter to one table.
type Dataset struct {
	adapter Adapter
	table   string
	name    string
}

// Bind returns the dataset view of table on a connected adapter.
// name is the reference shown in messages; table is used when it is empty.
func Bind(a Adapter, table, name string) *Dataset {
	if name == "" {
		name = table
	}
	return &Dataset{adapter: a, table: table, name: name}
}

// Name returns the dataset reference.
func (d *Dataset) Name() string { return d.name }

// Table returns the table name passed to the adapter.
func (d *Dataset) Table() string { return d.table }

// ListFields returns the table's fields.
func (d *Dataset) ListFields(ctx context.Context) ([]core.Field, error) {
	return d.adapter.ListFields(ctx, d.table)
}

// AlterFieldAlias sets the alias of one field.
func (d *Dataset) AlterFieldAlias(ctx context.Context, field, alias string) error {
	return d.adapter.AlterFieldAlias(ctx, d.table, field, alias)
}

// CaseSensitive reports the adapter's field name folding.
func (d *Dataset) CaseSensitive() bool { return d.adapter.CaseSensitive() }

var _ core.Dataset = (*Dataset)(nil)

// Open creates an adapter from cfg, connects it and binds it to table.
// The returned close function releases the connection.
func Open(ctx context.Context, cfg Config, table, name string, logger *slog.Logger) (*Dataset, func() error, error) {
	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}
	return Bind(a, table, name), a.Close, nil
}
