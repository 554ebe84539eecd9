// Package duckdb provides a DuckDB database adapter for fieldalias.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/fieldalias/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/fieldalias/pkg/adapter"
)

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
