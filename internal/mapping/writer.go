package mapping

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/leapstack-labs/fieldalias/pkg/core"
	"golang.org/x/text/transform"
)

// HeaderRecord is written by Write when Options.SkipHeader is set.
var HeaderRecord = []string{"field_name", "alias"}

// Write emits a name,alias template with one row per field, carrying the
// field's current alias. The header is only written when the reader is
// expected to skip it.
func Write(w io.Writer, fields []core.Field, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	enc, _ := opts.encoding()

	tw := transform.NewWriter(w, enc.NewEncoder())
	cw := csv.NewWriter(tw)
	cw.Comma = opts.delimiter()

	if opts.SkipHeader {
		if err := cw.Write(HeaderRecord); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, f := range fields {
		if err := cw.Write([]string{f.Name, f.Alias}); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write mapping: %w", err)
	}
	return tw.Close()
}
