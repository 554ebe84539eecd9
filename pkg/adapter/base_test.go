package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/fieldalias/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
			assert.False(t, base.IsConnected())
		})
	}
}

func TestBaseSQLAdapter_Log(t *testing.T) {
	t.Run("nil logger discards", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		require.NotNil(t, base.Log())
		base.Log().Debug("dropped")
	})

	t.Run("configured logger", func(t *testing.T) {
		logger, rec := testutil.NewRecordingLogger()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()

		base := &BaseSQLAdapter{DB: db, Logger: logger}
		assert.Same(t, logger, base.Log())
		require.NoError(t, base.Close())
		assert.Equal(t, []string{"closing database connection"}, rec.Messages(slog.LevelDebug))
	})
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		args      []any
		errMsg    string
	}{
		{
			name:    "exec without connection",
			setupDB: false,
			sql:     "SELECT 1",
			errMsg:  "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`COMMENT ON COLUMN "t"."c"`).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: `COMMENT ON COLUMN "t"."c" IS 'x'`,
		},
		{
			name:    "exec with args",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE gpkg_data_columns").
					WithArgs("Alias", "parcels", "ID").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			sql:  "UPDATE gpkg_data_columns SET name = ? WHERE table_name = ? AND column_name = ?",
			args: []any{"Alias", "parcels", "ID"},
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:    "INVALID SQL",
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			var mock sqlmock.Sqlmock
			if tt.setupDB {
				db, m, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				base.DB = db
				mock = m
				tt.setupMock(mock)
			}

			err := base.Exec(context.Background(), tt.sql, tt.args...)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}

			if mock != nil {
				assert.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		table      string
		wantSchema string
		wantName   string
	}{
		{"parcels", "public", "parcels"},
		{"gis.parcels", "gis", "parcels"},
		{".parcels", "public", ".parcels"},
		{"gis.", "public", "gis."},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			schema, name := ParseQualifiedName(tt.table, "public")
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"DT_CRT"`, QuoteIdent("DT_CRT"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
	assert.Equal(t, `'Date Created'`, QuoteLiteral("Date Created"))
	assert.Equal(t, `'O''Brien'`, QuoteLiteral("O'Brien"))
	assert.Equal(t, `"gis"."parcels"."ID"`, QuoteQualified("gis", "parcels", "ID"))
}
