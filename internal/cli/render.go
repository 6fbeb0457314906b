package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorTextMuted)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorTextDim)
	goodStyle  = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorOrange)
	badStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
)

// Table is a bordered text table. Every column but the first is
// right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders t, or an empty string when it has neither headers
// nor rows.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style.Render(" " + pad(cell, widths[i], i > 0) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// pad fills s to width display columns. Widths are measured in cells so
// the rupee sign counts once.
func pad(s string, width int, right bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// RenderField renders one "label  value" line of a summary block.
func RenderField(label, value string) string {
	return fmt.Sprintf("  %s %s\n", mutedStyle.Render(pad(label, 18, false)), valueStyle.Render(value))
}

// RenderPercent colours a usage percentage: green below 75, orange below
// 100, red at the cap.
func RenderPercent(p float64) string {
	s := fmt.Sprintf("%.0f%%", p)
	switch {
	case p >= 100:
		return badStyle.Render(s)
	case p >= 75:
		return warnStyle.Render(s)
	default:
		return goodStyle.Render(s)
	}
}

// RenderWarning renders a highlighted one-line notice.
func RenderWarning(msg string) string {
	return "  " + warnStyle.Render(msg) + "\n"
}

// RenderHeading renders an indented section heading.
func RenderHeading(title string) string {
	return "  " + headerStyle.Render(title)
}

// RenderMuted renders secondary text.
func RenderMuted(msg string) string {
	return mutedStyle.Render(msg)
}
