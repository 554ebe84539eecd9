// Package core defines the shared language of fieldalias.
//
// This package contains:
//   - Domain entities (AliasPair, AliasMapping, Field, RowResult, Report)
//   - Service interfaces (Adapter, Dataset)
//   - Configuration types (AdapterConfig, DatasetRef)
//   - Error taxonomy (InputError, UpdateRejectedError)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
