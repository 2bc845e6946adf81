package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// Palette colours.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")
)

// styles renders command output. Colour is only emitted when the target
// writer is a terminal.
type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		muted:   r.NewStyle().Foreground(colorMuted),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		err:     r.NewStyle().Foreground(colorError),
	}
}

// state renders an adapter state padded to a fixed column width.
func (s *styles) state(st domain.AdapterState) string {
	style := s.muted
	switch st {
	case domain.AdapterReady:
		style = s.success
	case domain.AdapterBusy:
		style = s.warning
	case domain.AdapterUnavailable:
		style = s.err
	}
	return style.Width(14).Render(string(st))
}

// transaction picks the style for a log entry of the given kind.
func (s *styles) transaction(kind domain.TransactionKind) lipgloss.Style {
	switch kind {
	case domain.TransactionError:
		return s.err
	case domain.TransactionResponse:
		return s.success
	default:
		return s.muted
	}
}
