package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	// Help content
	sections := []helpSection{
		{
			title: "Views",
			items: []helpItem{
				{"tab/S-tab", "Cycle views"},
				{"1 2 3 4", "Posts/Comments/Pools/Wiki"},
				{"5 6 7", "Mail/Followed/Errors"},
				{"esc", "Back"},
			},
		},
		{
			title: "Navigation",
			items: []helpItem{
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"ctrl+d/u", "Half page down/up"},
				{"/", "Search or filter"},
				{"r", "Reload"},
			},
		},
		{
			title: "Posts",
			items: []helpItem{
				{"enter", "Toggle detail pane"},
				{"f", "Favorite/unfavorite"},
				{"+/-", "Vote up/down"},
				{"d", "Download"},
				{"o", "Open in browser"},
				{"a", "Follow search"},
			},
		},
		{
			title: "Followed tags",
			items: []helpItem{
				{"a/x", "Add/remove"},
				{"u", "Check now"},
				{"C", "Mark all seen"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"T", "Cycle theme"},
				{"h/?", "Toggle help"},
				{"e/ctrl+c", "Quit"},
			},
		},
	}

	// Build help content
	var b strings.Builder

	// Title
	title := styles.Text.Bold(true).Render("Keyboard Shortcuts")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	for i, section := range sections {
		// Section title
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, item := range section.items {
			// Key
			keyStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color(m.theme.Warning)).
				Width(12)
			b.WriteString(keyStyle.Render(item.key))
			// Description
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	// Build the modal
	content := b.String()

	// Calculate modal dimensions
	modalWidth := 44

	// Modal style
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	// Center the modal
	modalContent := modal.Render(content)

	// Create overlay
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modalContent,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
