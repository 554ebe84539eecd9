// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/leapstack-labs/fieldalias/pkg/adapters/geopackage"
	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// TestProject is a temporary project holding a GeoPackage and an alias CSV.
type TestProject struct {
	Dir        string
	GeoPackage string
	CSV        string
}

// Dataset returns the reference of the parcels layer.
func (p *TestProject) Dataset() string {
	return p.GeoPackage + "/parcels"
}

// DefaultCSV maps two parcels fields and one field the layer lacks.
const DefaultCSV = "DT_CRT,Date Created\nQTY,Quantity\nGHOST,Phantom\n"

// SetupTestProject creates a temporary project with a parcels layer
// (fid, geom, DT_CRT, QTY) and an aliases.csv holding DefaultCSV.
func SetupTestProject(t *testing.T) *TestProject {
	t.Helper()

	tmpDir := t.TempDir()
	gpkg := filepath.Join(tmpDir, "parcels.gpkg")
	if err := os.WriteFile(gpkg, nil, 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", gpkg, err)
	}

	ctx := context.Background()
	adp := geopackage.New(nil)
	if err := adp.Connect(ctx, core.AdapterConfig{Path: gpkg}); err != nil {
		t.Fatalf("failed to open %s: %v", gpkg, err)
	}
	defer func() { _ = adp.Close() }()

	if err := adp.Exec(ctx, `CREATE TABLE parcels (
		fid INTEGER PRIMARY KEY AUTOINCREMENT,
		geom BLOB,
		DT_CRT TEXT,
		QTY INTEGER
	)`); err != nil {
		t.Fatalf("failed to create parcels: %v", err)
	}

	csvPath := WriteCSV(t, tmpDir, "aliases.csv", DefaultCSV)
	return &TestProject{Dir: tmpDir, GeoPackage: gpkg, CSV: csvPath}
}

// WriteCSV writes content to dir/name and returns the path.
func WriteCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
