package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/leapstack-labs/fieldalias/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "extra options sorted",
			config: adapter.Config{
				Database: "gis",
				Options:  map[string]string{"search_path": "gis", "application_name": "fieldalias"},
			},
			expected: "host=localhost port=5432 dbname=gis sslmode=disable application_name=fieldalias search_path=gis",
		},
		{
			name: "quoted password",
			config: adapter.Config{
				Database: "gis",
				Password: `it's a secret`,
			},
			expected: `host=localhost port=5432 dbname=gis sslmode=disable password='it\'s a secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp)
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected())
	assert.Equal(t, "postgres", adp.Name())
	assert.True(t, adp.CaseSensitive())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.ListFields(ctx, "parcels")
	assert.ErrorContains(t, err, "not established")

	err = adp.AlterFieldAlias(ctx, "parcels", "QTY", "Quantity")
	assert.ErrorContains(t, err, "not established")
}

func setupMock(t *testing.T, schema string) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	adp := New(nil)
	adp.DB = db
	adp.Cfg = core.AdapterConfig{Schema: schema}
	return adp, mock
}

func TestAdapter_ListFields(t *testing.T) {
	tests := []struct {
		name       string
		schema     string
		table      string
		wantArgs   []string
		rows       [][]driver.Value
		wantFields []core.Field
		errSubstr  string
	}{
		{
			name:     "default schema",
			table:    "parcels",
			wantArgs: []string{"public", "parcels"},
			rows: [][]driver.Value{
				{"ID", "integer", "", 1},
				{"DT_CRT", "date", "Date Created", 2},
			},
			wantFields: []core.Field{
				{Name: "ID", Type: "integer", Position: 1},
				{Name: "DT_CRT", Type: "date", Alias: "Date Created", Position: 2},
			},
		},
		{
			name:     "configured schema",
			schema:   "gis",
			table:    "parcels",
			wantArgs: []string{"gis", "parcels"},
			rows:     [][]driver.Value{{"geom", "geometry(Polygon,4326)", "", 1}},
			wantFields: []core.Field{
				{Name: "geom", Type: "geometry(Polygon,4326)", Position: 1},
			},
		},
		{
			name:      "qualified table wins",
			schema:    "gis",
			table:     "staging.parcels",
			wantArgs:  []string{"staging", "parcels"},
			errSubstr: "table staging.parcels not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp, mock := setupMock(t, tt.schema)

			rows := sqlmock.NewRows([]string{"attname", "format_type", "comment", "attnum"})
			for _, r := range tt.rows {
				rows.AddRow(r...)
			}
			mock.ExpectQuery("FROM pg_attribute").
				WithArgs(tt.wantArgs[0], tt.wantArgs[1]).
				WillReturnRows(rows)

			fields, err := adp.ListFields(context.Background(), tt.table)
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantFields, fields)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_AlterFieldAlias(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		field     string
		alias     string
		wantSQL   string
		execErr   error
		errSubstr string
	}{
		{
			name:    "set alias",
			table:   "parcels",
			field:   "DT_CRT",
			alias:   "Date Created",
			wantSQL: `COMMENT ON COLUMN "public"."parcels"."DT_CRT" IS 'Date Created'`,
		},
		{
			name:    "escape quote",
			table:   "gis.parcels",
			field:   "owner",
			alias:   "Owner's name",
			wantSQL: `COMMENT ON COLUMN "gis"."parcels"."owner" IS 'Owner''s name'`,
		},
		{
			name:    "clear alias",
			table:   "parcels",
			field:   "QTY",
			alias:   "",
			wantSQL: `COMMENT ON COLUMN "public"."parcels"."QTY" IS NULL`,
		},
		{
			name:      "permission denied",
			table:     "parcels",
			field:     "QTY",
			alias:     "Quantity",
			wantSQL:   `COMMENT ON COLUMN "public"."parcels"."QTY" IS 'Quantity'`,
			execErr:   assert.AnError,
			errSubstr: "failed to update alias of parcels.QTY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp, mock := setupMock(t, "")

			exp := mock.ExpectExec(regexp.QuoteMeta(tt.wantSQL))
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 0))
			}

			err := adp.AlterFieldAlias(context.Background(), tt.table, tt.field, tt.alias)
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				assert.ErrorIs(t, err, tt.execErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.Name())
}

func TestAdapter_Close(t *testing.T) {
	adp := New(nil)
	assert.NoError(t, adp.Close())
}
