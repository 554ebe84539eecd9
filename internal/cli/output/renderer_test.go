package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer

	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRenderer(&out, &errOut, ModeAuto).EffectiveMode(), "buffers are not terminals")
}

func TestRenderer_NoANSIWhenPiped(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Header(1, "Fields")
	r.StatusLine("QTY", "updated", "Alias updated for field QTY")
	r.Success("done")
	r.Warning("careful")
	r.Muted("quiet")
	r.Error("broken")

	assert.False(t, ansiPattern.MatchString(out.String()), "stdout: %q", out.String())
	assert.Contains(t, out.String(), "✓ QTY Alias updated for field QTY")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestRenderer_Table(t *testing.T) {
	var out, errOut bytes.Buffer

	md := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)
	md.Table([]string{"Field", "Alias"}, [][]string{{"QTY", "Quantity"}})
	assert.Contains(t, out.String(), "| Field | Alias |")
	assert.Contains(t, out.String(), "| QTY | Quantity |")

	out.Reset()
	text := NewRendererWithTTY(&out, &errOut, false, ModeText)
	text.Table([]string{"Field", "Alias"}, [][]string{{"QTY", "Quantity"}})
	assert.Contains(t, out.String(), "┌")
	assert.Contains(t, out.String(), "Quantity")
}

func TestRenderer_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeJSON)

	require.NoError(t, r.JSON(AdaptersOutput{Adapters: []AdapterInfo{{Name: "duckdb"}}}))

	var decoded AdaptersOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "duckdb", decoded.Adapters[0].Name)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "# Fields", FormatHeader(1, "Fields"))
	assert.Equal(t, "### Fields", FormatHeader(3, "Fields"))
	assert.Equal(t, "# Fields", FormatHeader(0, "Fields"))
	assert.Equal(t, "**Dataset:** parcels", FormatKeyValue("Dataset", "parcels"))
}
