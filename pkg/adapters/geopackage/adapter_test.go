package geopackage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/fieldalias/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupGeoPackage returns an adapter connected to an in-memory database holding
// a parcels feature table.
func setupGeoPackage(t *testing.T, params map[string]any) *Adapter {
	t.Helper()
	ctx := context.Background()

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:", Params: params}))
	t.Cleanup(func() { _ = adp.Close() })

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE parcels (
		fid INTEGER PRIMARY KEY AUTOINCREMENT,
		geom BLOB,
		DT_CRT TEXT,
		QTY INTEGER
	)`))
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		params    map[string]any
		errSubstr string
	}{
		{
			name:      "in-memory",
			setupPath: func(_ *testing.T) string { return ":memory:" },
		},
		{
			name: "existing file",
			setupPath: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "city.gpkg")
				require.NoError(t, os.WriteFile(path, nil, 0o600))
				return path
			},
		},
		{
			name: "missing file",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.gpkg")
			},
			errSubstr: "not found",
		},
		{
			name:      "empty path",
			setupPath: func(_ *testing.T) string { return "" },
			errSubstr: "path is required",
		},
		{
			name:      "bad params",
			setupPath: func(_ *testing.T) string { return ":memory:" },
			params:    map[string]any{"alias_column": "description"},
			errSubstr: "alias_column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			err := adp.Connect(context.Background(), core.AdapterConfig{Path: tt.setupPath(t), Params: tt.params})
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.True(t, adp.IsConnected())
			assert.NoError(t, adp.Close())
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.ListFields(ctx, "parcels")
	assert.ErrorContains(t, err, "database connection not established")

	err = adp.AlterFieldAlias(ctx, "parcels", "QTY", "Quantity")
	assert.ErrorContains(t, err, "database connection not established")
}

func TestAdapter_ListFields(t *testing.T) {
	ctx := context.Background()
	adp := setupGeoPackage(t, nil)

	fields, err := adp.ListFields(ctx, "parcels")
	require.NoError(t, err)

	require.Len(t, fields, 4)
	assert.Equal(t, core.Field{Name: "fid", Type: "INTEGER", Position: 1}, fields[0])
	assert.Equal(t, "DT_CRT", fields[2].Name)
	assert.Equal(t, 3, fields[2].Position)
	assert.Empty(t, fields[2].Alias)

	// table names fold case like SQLite
	folded, err := adp.ListFields(ctx, "PARCELS")
	require.NoError(t, err)
	assert.Equal(t, fields, folded)

	_, err = adp.ListFields(ctx, "roads")
	assert.ErrorContains(t, err, "table roads not found")
}

func TestAdapter_AlterFieldAlias(t *testing.T) {
	ctx := context.Background()
	adp := setupGeoPackage(t, nil)

	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "DT_CRT", "Date Created"))
	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "qty", "Quantity"))

	fields, err := adp.ListFields(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, "Date Created", fields[2].Alias)
	assert.Equal(t, "Quantity", fields[3].Alias)

	// stored against the canonical column name
	var column string
	require.NoError(t, adp.DB.QueryRowContext(ctx,
		`SELECT column_name FROM gpkg_data_columns WHERE name = 'Quantity'`).Scan(&column))
	assert.Equal(t, "QTY", column)

	// schema extension registered once
	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "QTY", "Qty"))
	var n int
	require.NoError(t, adp.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gpkg_extensions WHERE extension_name = 'gpkg_schema'`).Scan(&n))
	assert.Equal(t, 1, n)

	fields, err = adp.ListFields(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, "Qty", fields[3].Alias)
}

func TestAdapter_AlterFieldAlias_Clear(t *testing.T) {
	ctx := context.Background()
	adp := setupGeoPackage(t, nil)

	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "QTY", "Quantity"))
	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "QTY", ""))

	var alias *string
	require.NoError(t, adp.DB.QueryRowContext(ctx,
		`SELECT name FROM gpkg_data_columns WHERE column_name = 'QTY'`).Scan(&alias))
	assert.Nil(t, alias)
}

func TestAdapter_AlterFieldAlias_Rejected(t *testing.T) {
	ctx := context.Background()
	adp := setupGeoPackage(t, nil)

	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "DT_CRT", "Value"))

	// gdc_tn: one alias per table
	err := adp.AlterFieldAlias(ctx, "parcels", "QTY", "Value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update alias of parcels.QTY")

	err = adp.AlterFieldAlias(ctx, "parcels", "GHOST", "X")
	assert.ErrorContains(t, err, "field GHOST not found in parcels")

	err = adp.AlterFieldAlias(ctx, "roads", "QTY", "X")
	assert.ErrorContains(t, err, "table roads not found")
}

func TestAdapter_TitleColumn(t *testing.T) {
	ctx := context.Background()
	adp := setupGeoPackage(t, map[string]any{"alias_column": "title"})

	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "QTY", "Quantity"))
	require.NoError(t, adp.AlterFieldAlias(ctx, "parcels", "DT_CRT", "Quantity"))

	fields, err := adp.ListFields(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, "Quantity", fields[2].Alias)
	assert.Equal(t, "Quantity", fields[3].Alias)
}

func TestAdapter_NoSchemaExtension(t *testing.T) {
	ctx := context.Background()
	adp := setupGeoPackage(t, map[string]any{"create_schema_extension": "false"})

	err := adp.AlterFieldAlias(ctx, "parcels", "QTY", "Quantity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpkg_data_columns table not found")
}

func TestAdapter_Metadata(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, "geopackage", adp.Name())
	assert.False(t, adp.CaseSensitive())
}
