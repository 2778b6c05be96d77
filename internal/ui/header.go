package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the banner printed when a long-running command starts.
type Header struct {
	Title    string
	Subtitle string
	Params   []Detail
	Width    int
}

// NewHeader creates a new header with the given values
func NewHeader(title, subtitle string, params ...Detail) *Header {
	return &Header{Title: title, Subtitle: subtitle, Params: params, Width: GetTerminalWidth()}
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderSubtitleStyle.Render(h.Subtitle),
	)

	content := top
	if len(h.Params) > 0 {
		divider := lipgloss.NewStyle().
			Foreground(AccentColor).
			Render(strings.Repeat("─", width-6))

		params := renderDetails(h.Params)
		for i := range params {
			params[i] = "  " + params[i]
		}
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(params, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
