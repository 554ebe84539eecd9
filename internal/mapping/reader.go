// Package mapping reads and writes the two-column CSV files that map field
// names to aliases.
package mapping

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/fieldalias/pkg/core"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrTooFewColumns is wrapped by the InputError returned for a short row.
var ErrTooFewColumns = errors.New("row has fewer than 2 columns")

// DefaultEncoding is used when Options.Encoding is empty.
const DefaultEncoding = "utf-8"

// Options control how a mapping file is parsed and written.
type Options struct {
	// Delimiter separates columns. Zero means ','.
	Delimiter rune
	// Encoding is a WHATWG encoding label. A byte order mark always wins.
	Encoding string
	// SkipHeader drops the first record. Off by default: a header is data.
	SkipHeader bool
	// TrimSpace trims surrounding whitespace from name and alias.
	TrimSpace bool
}

// ParseDelimiter converts a configured delimiter to a rune. The empty
// string means ','; "tab" and a literal `\t` mean a tab character.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character", s)
	}
	return r, nil
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o Options) encoding() (encoding.Encoding, error) {
	label := o.Encoding
	if label == "" {
		label = DefaultEncoding
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc, nil
}

// Validate checks the delimiter and the encoding label.
func (o Options) Validate() error {
	d := o.delimiter()
	if d == '"' || d == '\r' || d == '\n' || d == '\uFEFF' || !utf8.ValidRune(d) || d == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q", d)
	}
	_, err := o.encoding()
	return err
}

// ReadFile parses the mapping file at path. Any failure is an *core.InputError.
func ReadFile(path string, opts Options) (core.AliasMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.InputError{Path: path, Err: fmt.Errorf("failed to open mapping: %w", err)}
	}
	defer func() { _ = f.Close() }()

	m, err := Read(f, opts)
	if err != nil {
		var inErr *core.InputError
		if errors.As(err, &inErr) && inErr.Path == "" {
			inErr.Path = path
		}
		return nil, err
	}
	return m, nil
}

// Read parses every record of r before returning, so a malformed row is
// reported before the caller acts on any pair.
func Read(r io.Reader, opts Options) (core.AliasMapping, error) {
	if err := opts.Validate(); err != nil {
		return nil, &core.InputError{Err: err}
	}
	enc, _ := opts.encoding()

	lc := &lineCounter{r: transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))}
	cr := csv.NewReader(lc)
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1

	var m core.AliasMapping
	first := true
	// last line of the previous record; csv.Reader drops blank lines, so a
	// gap before the next record is a row with no columns
	lastLine := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			if lc.lines > lastLine {
				return nil, blankLineError(lastLine + 1)
			}
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &core.InputError{Line: perr.StartLine, Err: perr.Err}
			}
			return nil, &core.InputError{Err: fmt.Errorf("failed to read mapping: %w", err)}
		}

		line, _ := cr.FieldPos(0)
		if line > lastLine+1 {
			return nil, blankLineError(lastLine + 1)
		}
		endLine, _ := cr.FieldPos(len(rec) - 1)
		lastLine = endLine + strings.Count(rec[len(rec)-1], "\n")

		if first {
			first = false
			if opts.SkipHeader {
				continue
			}
		}

		if len(rec) < 2 {
			return nil, &core.InputError{Line: line, Err: fmt.Errorf("%w (got %d)", ErrTooFewColumns, len(rec))}
		}

		name, alias := rec[0], rec[1]
		if opts.TrimSpace {
			name, alias = strings.TrimSpace(name), strings.TrimSpace(alias)
		}
		m = append(m, core.AliasPair{FieldName: name, Alias: alias, Line: line})
	}
	return m, nil
}

func blankLineError(line int) error {
	return &core.InputError{Line: line, Err: fmt.Errorf("%w (got 0)", ErrTooFewColumns)}
}

// lineCounter counts the newlines read through it.
type lineCounter struct {
	r     io.Reader
	lines int
}

func (l *lineCounter) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.lines += bytes.Count(p[:n], []byte{'\n'})
	return n, err
}
