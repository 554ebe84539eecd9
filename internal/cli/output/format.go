package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// FormatHeader returns a markdown header.
func FormatHeader(level int, s string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + s
}

// FormatKeyValue returns a bold markdown key with its value.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("**%s:** %s", key, value)
}

// Table writes rows under headers: a light box table in text mode and a
// markdown table otherwise.
func (r *Renderer) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeText {
		t.SetStyle(table.StyleLight)
		t.Render()
		return
	}
	t.RenderMarkdown()
}
