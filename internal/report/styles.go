package report

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles holds the lipgloss styles used by the text report
type Styles struct {
	Title      lipgloss.Style
	File       lipgloss.Style
	Location   lipgloss.Style
	Type       lipgloss.Style
	Suggestion lipgloss.Style
	Link       lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Dim        lipgloss.Style
}

// NewStyles returns colored styles, or plain ones when color is disabled
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Title: plain, File: plain, Location: plain, Type: plain, Suggestion: plain,
			Link: plain, Error: plain, Success: plain, Dim: plain,
		}
	}
	return &Styles{
		Title:      lipgloss.NewStyle().Bold(true).Underline(true),
		File:       lipgloss.NewStyle().Bold(true),
		Location:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Type:       lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Suggestion: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Link:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Success:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// IsColorEnabled resolves a color mode ("auto", "always", "never") for w.
// Auto enables color only on a terminal without NO_COLOR set.
func IsColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}
