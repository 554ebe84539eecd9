package output

import "github.com/charmbracelet/lipgloss"

// Status icons.
const (
	IconSuccess = "✓"
	IconWarning = "!"
	IconError   = "✗"
	IconPending = "•"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header        lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Info          lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	FieldName     lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds the styles for one lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:        r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2:       r.NewStyle().Bold(true),
		Bold:          r.NewStyle().Bold(true),
		Muted:         r.NewStyle().Foreground(lipgloss.Color("8")),
		Info:          r.NewStyle().Foreground(lipgloss.Color("14")),
		Success:       r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:       r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:         r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		FieldName:     r.NewStyle().Foreground(lipgloss.Color("13")),
		StatusSuccess: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		StatusFailed:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}
