package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Dataset is a table or feature class bound to its engine.
type Dataset interface {
	// Name returns the dataset reference as the user gave it.
	Name() string
	ListFields(ctx context.Context) ([]Field, error)
	AlterFieldAlias(ctx context.Context, field, alias string) error
	CaseSensitive() bool
}

// LookupField finds name in fields, folding case when caseSensitive is false.
// Exact matches win over case-folded ones.
func LookupField(fields []Field, name string, caseSensitive bool) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	if caseSensitive {
		return Field{}, false
	}
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// DatasetRef is a parsed dataset reference.
// Type and Path are empty when the reference names a table on the configured target.
type DatasetRef struct {
	Type  string
	Path  string
	Table string
}

func (r DatasetRef) String() string {
	if r.Path == "" {
		return r.Table
	}
	return r.Path + "/" + r.Table
}

// fileTypes maps database file extensions to adapter names.
var fileTypes = map[string]string{
	".gpkg":   "geopackage",
	".duckdb": "duckdb",
	".ddb":    "duckdb",
}

// ParseDatasetRef parses a dataset reference.
//
// "data/parcels.gpkg/parcels" resolves to the parcels table of a GeoPackage file and
// "warehouse.duckdb/main.sales" to a DuckDB table. Anything else is a table name,
// optionally schema-qualified, on the configured target.
func ParseDatasetRef(ref string) (DatasetRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return DatasetRef{}, fmt.Errorf("dataset reference is empty")
	}

	norm := strings.ReplaceAll(ref, `\`, "/")
	if i := strings.LastIndex(norm, "/"); i > 0 {
		dir, table := norm[:i], norm[i+1:]
		if typ, ok := fileTypes[strings.ToLower(filepath.Ext(dir))]; ok {
			if table == "" {
				return DatasetRef{}, fmt.Errorf("dataset reference %q has no table name", ref)
			}
			return DatasetRef{Type: typ, Path: filepath.FromSlash(dir), Table: table}, nil
		}
	}

	if typ, ok := fileTypes[strings.ToLower(filepath.Ext(norm))]; ok {
		return DatasetRef{}, fmt.Errorf("dataset reference %q names a %s file but no table\nHint: use %s/<table>", ref, typ, ref)
	}

	return DatasetRef{Table: ref}, nil
}
