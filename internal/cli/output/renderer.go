// Package output renders command results for terminals, pipes and machines.
//
// Output adapts to the environment:
//   - Terminal: styled, colored text
//   - Piped/Scripted: markdown
//   - --output json: a single JSON document on stdout
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// OutputMode selects how results are written.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Modes lists the accepted --output values.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}

// Mode converts a configuration value into an OutputMode.
// Unknown or empty values mean auto.
func Mode(s string) OutputMode {
	switch OutputMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText
	case ModeMarkdown, "md":
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	lr := lipgloss.NewRenderer(out)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		styles: NewStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode == ModeAuto || r.mode == "" {
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	}
	return r.mode
}

// IsTTY reports whether stdout is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the renderer's styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Writer returns the stdout writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the stderr writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Println writes s and a newline to stdout.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a styled header.
func (r *Renderer) Header(level int, s string) {
	style := r.styles.Header2
	if level <= 1 {
		style = r.styles.Header
	}
	r.Println(style.Render(s))
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(s string) {
	r.Println(r.styles.Muted.Render(s))
}

// Success writes a success line.
func (r *Renderer) Success(s string) {
	r.Println(r.styles.Success.Render(IconSuccess + " " + s))
}

// Warning writes a warning line.
func (r *Renderer) Warning(s string) {
	r.Println(r.styles.Warning.Render(IconWarning + " " + s))
}

// Error writes an error line to stderr.
func (r *Renderer) Error(s string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(IconError+" "+s))
}

// StatusLine writes "icon name detail" with the icon and color chosen by status.
func (r *Renderer) StatusLine(name, status, detail string) {
	icon, style := r.statusStyle(status)
	line := style.Render(icon) + " " + r.styles.Bold.Render(name)
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

func (r *Renderer) statusStyle(status string) (string, lipgloss.Style) {
	switch status {
	case "success", "updated", "completed":
		return IconSuccess, r.styles.StatusSuccess
	case "planned", "running":
		return IconPending, r.styles.Info
	case "warning", "not_found", "skipped":
		return IconWarning, r.styles.Warning
	case "failed", "rejected", "error":
		return IconError, r.styles.StatusFailed
	default:
		return IconPending, r.styles.Muted
	}
}

// JSON writes v as indented JSON to stdout.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
