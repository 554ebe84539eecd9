package mapping

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/fieldalias/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		want  core.AliasMapping
	}{
		{
			name:  "two rows",
			input: "ID,Identifier\nDT_CRT,Date Created\n",
			want: core.AliasMapping{
				{FieldName: "ID", Alias: "Identifier", Line: 1},
				{FieldName: "DT_CRT", Alias: "Date Created", Line: 2},
			},
		},
		{
			name:  "header is data",
			input: "field_name,alias\nQTY,Quantity\n",
			want: core.AliasMapping{
				{FieldName: "field_name", Alias: "alias", Line: 1},
				{FieldName: "QTY", Alias: "Quantity", Line: 2},
			},
		},
		{
			name:  "skip header",
			input: "field_name,alias\nQTY,Quantity\n",
			opts:  Options{SkipHeader: true},
			want:  core.AliasMapping{{FieldName: "QTY", Alias: "Quantity", Line: 2}},
		},
		{
			name:  "extra columns ignored",
			input: "QTY,Quantity,ignored,also ignored\n",
			want:  core.AliasMapping{{FieldName: "QTY", Alias: "Quantity", Line: 1}},
		},
		{
			name:  "empty file",
			input: "",
			want:  nil,
		},
		{
			name:  "no trailing newline",
			input: "ID,Identifier\nQTY,Quantity",
			want: core.AliasMapping{
				{FieldName: "ID", Alias: "Identifier", Line: 1},
				{FieldName: "QTY", Alias: "Quantity", Line: 2},
			},
		},
		{
			name:  "crlf line endings",
			input: "ID,Identifier\r\nQTY,Quantity\r\n",
			want: core.AliasMapping{
				{FieldName: "ID", Alias: "Identifier", Line: 1},
				{FieldName: "QTY", Alias: "Quantity", Line: 2},
			},
		},
		{
			name:  "multi-line quoted alias",
			input: "DT_CRT,\"Date\nCreated\"\nQTY,Quantity\n",
			want: core.AliasMapping{
				{FieldName: "DT_CRT", Alias: "Date\nCreated", Line: 1},
				{FieldName: "QTY", Alias: "Quantity", Line: 3},
			},
		},
		{
			name:  "empty alias",
			input: "QTY,\n",
			want:  core.AliasMapping{{FieldName: "QTY", Alias: "", Line: 1}},
		},
		{
			name:  "quoted alias with comma",
			input: "DT_CRT,\"Created, date\"\n",
			want:  core.AliasMapping{{FieldName: "DT_CRT", Alias: "Created, date", Line: 1}},
		},
		{
			name:  "whitespace kept by default",
			input: " QTY , Quantity \n",
			want:  core.AliasMapping{{FieldName: " QTY ", Alias: " Quantity ", Line: 1}},
		},
		{
			name:  "trim space",
			input: " QTY , Quantity \n",
			opts:  Options{TrimSpace: true},
			want:  core.AliasMapping{{FieldName: "QTY", Alias: "Quantity", Line: 1}},
		},
		{
			name:  "semicolon delimiter",
			input: "QTY;Quantity\n",
			opts:  Options{Delimiter: ';'},
			want:  core.AliasMapping{{FieldName: "QTY", Alias: "Quantity", Line: 1}},
		},
		{
			name:  "utf-8 bom stripped",
			input: "\xef\xbb\xbfQTY,Quantity\n",
			want:  core.AliasMapping{{FieldName: "QTY", Alias: "Quantity", Line: 1}},
		},
		{
			name:  "windows-1252",
			input: "ADR,Adresse compl\xe8te\n",
			opts:  Options{Encoding: "windows-1252"},
			want:  core.AliasMapping{{FieldName: "ADR", Alias: "Adresse complète", Line: 1}},
		},
		{
			name:  "bom wins over label",
			input: "\xef\xbb\xbfADR,Adresse complète\n",
			opts:  Options{Encoding: "windows-1252"},
			want:  core.AliasMapping{{FieldName: "ADR", Alias: "Adresse complète", Line: 1}},
		},
		{
			name:  "duplicates preserved in order",
			input: "QTY,Quantity\nQTY,Qty\n",
			want: core.AliasMapping{
				{FieldName: "QTY", Alias: "Quantity", Line: 1},
				{FieldName: "QTY", Alias: "Qty", Line: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     Options
		wantLine int
		errIs    error
		errSub   string
	}{
		{
			name:     "single column row",
			input:    "ID,Identifier\nQTY\nDT_CRT,Date Created\n",
			wantLine: 2,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "single column first row",
			input:    "QTY\n",
			wantLine: 1,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "blank line between rows",
			input:    "DT_CRT,Date Created\n\nQTY,Quantity\n",
			wantLine: 2,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "blank first line",
			input:    "\nQTY,Quantity\n",
			opts:     Options{SkipHeader: true},
			wantLine: 1,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "trailing blank line",
			input:    "QTY,Quantity\n\n",
			wantLine: 2,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "trailing blank crlf line",
			input:    "QTY,Quantity\r\n\r\n",
			wantLine: 2,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "newline only",
			input:    "\n",
			wantLine: 1,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "blank line after multi-line alias",
			input:    "DT_CRT,\"Date\nCreated\"\n\nQTY,Quantity\n",
			wantLine: 3,
			errIs:    ErrTooFewColumns,
		},
		{
			name:     "bad quoting",
			input:    "ID,Identifier\nQTY,\"Quan\"tity\n",
			wantLine: 2,
			errSub:   "quote",
		},
		{
			name:   "unknown encoding",
			input:  "QTY,Quantity\n",
			opts:   Options{Encoding: "klingon"},
			errSub: "unsupported encoding",
		},
		{
			name:   "invalid delimiter",
			input:  "QTY,Quantity\n",
			opts:   Options{Delimiter: '"'},
			errSub: "invalid delimiter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input), tt.opts)
			require.Error(t, err)
			assert.Nil(t, got)

			var inErr *core.InputError
			require.ErrorAs(t, err, &inErr)
			assert.Equal(t, tt.wantLine, inErr.Line)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if tt.errSub != "" {
				assert.Contains(t, err.Error(), tt.errSub)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "aliases.csv")
		require.NoError(t, os.WriteFile(path, []byte("QTY,Quantity\n"), 0o600))

		got, err := ReadFile(path, Options{})
		require.NoError(t, err)
		assert.Equal(t, core.AliasMapping{{FieldName: "QTY", Alias: "Quantity", Line: 1}}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(dir, "missing.csv")

		_, err := ReadFile(path, Options{})
		var inErr *core.InputError
		require.ErrorAs(t, err, &inErr)
		assert.Equal(t, path, inErr.Path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("short row carries path", func(t *testing.T) {
		path := filepath.Join(dir, "short.csv")
		require.NoError(t, os.WriteFile(path, []byte("QTY,Quantity\nGHOST\n"), 0o600))

		_, err := ReadFile(path, Options{})
		require.Error(t, err)
		assert.Equal(t, path+":2: row has fewer than 2 columns (got 1)", err.Error())
	})
}

func TestWrite(t *testing.T) {
	fields := []core.Field{
		{Name: "ID", Position: 1},
		{Name: "DT_CRT", Alias: "Date Created", Position: 2},
		{Name: "ADR", Alias: "Adresse, complète", Position: 3},
	}

	t.Run("template", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, fields, Options{}))
		assert.Equal(t, "ID,\nDT_CRT,Date Created\nADR,\"Adresse, complète\"\n", buf.String())
	})

	t.Run("header when skipped on read", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, fields[:1], Options{SkipHeader: true, Delimiter: ';'}))
		assert.Equal(t, "field_name;alias\nID;\n", buf.String())
	})

	t.Run("round trip", func(t *testing.T) {
		opts := Options{Encoding: "windows-1252", SkipHeader: true}
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, fields, opts))

		got, err := Read(&buf, opts)
		require.NoError(t, err)
		require.Len(t, got, len(fields))
		for i, f := range fields {
			assert.Equal(t, f.Name, got[i].FieldName)
			assert.Equal(t, f.Alias, got[i].Alias)
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, Write(&buf, fields, Options{Encoding: "klingon"}))
	})
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: ','},
		{in: ";", want: ';'},
		{in: "|", want: '|'},
		{in: "\t", want: '\t'},
		{in: `\t`, want: '\t'},
		{in: "tab", want: '\t'},
		{in: "§", want: '§'},
		{in: ";;", wantErr: true},
		{in: "comma", wantErr: true},
		{in: "\xff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDelimiter(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid delimiter")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

