package core

import "context"

// Adapter binds the dataset capability surface to one database engine.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// ListFields returns the field descriptors of a table in ordinal order.
	ListFields(ctx context.Context, table string) ([]Field, error)

	// AlterFieldAlias sets the alias of an existing field. An empty alias clears it.
	AlterFieldAlias(ctx context.Context, table, field, alias string) error

	// CaseSensitive reports whether the engine distinguishes field names by case.
	CaseSensitive() bool

	// Name returns the registered adapter name.
	Name() string
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}
