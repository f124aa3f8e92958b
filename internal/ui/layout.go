package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth is the threshold for extra-wide layouts.
	LayoutExtraWideWidth = 160
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// DefaultRequestTimeout bounds every network call the UI makes.
	DefaultRequestTimeout = 15 * time.Second

	// ToastDuration is how long a status message stays in the header.
	ToastDuration = 5 * time.Second
)

// Content limits.
const (
	// ErrorLogLimit is the number of error log entries loaded into the view.
	ErrorLogLimit = 500
)

// chromeHeight is the rows taken by the header and command bar.
const chromeHeight = 2

// splitWidths divides width into a list pane and a detail pane.
// Extra wide (>= 160): 30% list, 70% detail. Default: 40% list, 60% detail.
func splitWidths(width int) (int, int) {
	list := width * 40 / 100
	if width >= LayoutExtraWideWidth {
		list = width * 30 / 100
	}
	return list, width - list
}

// renderTitledBox renders content in a box with the title embedded in the top border:
// ┌─── Title ───┐
// When focused is true, uses BorderFocus color and FocusBg background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 1)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	paddedLines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}

// renderEmpty centers a muted message in the content area.
func (m Model) renderEmpty(msg string) string {
	styles := m.theme.Styles()
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
}

// contentHeight is the height left below the header and command bar.
func (m Model) contentHeight() int {
	return max(m.height-chromeHeight, 3)
}

// visibleWindow returns the [start, end) range of rows to draw so that
// selected stays on screen.
func visibleWindow(total, selected, rows int) (int, int) {
	if rows <= 0 || total <= rows {
		return 0, total
	}
	start := selected - rows/2
	start = max(start, 0)
	start = min(start, total-rows)
	return start, start + rows
}
