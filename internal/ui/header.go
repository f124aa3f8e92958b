package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("snout", styles.Logo)}

	if host := hostOf(m.baseURL()); host != "" {
		parts = append(parts, bg.Render(host, styles.MutedText))
	}

	switch {
	case snap.HasUser:
		user := snap.User.Name
		if !compact && snap.User.LevelString != "" {
			user += " (" + snap.User.LevelString + ")"
		}
		parts = append(parts, bg.Render("●", styles.SuccessText)+bg.Space()+bg.Render(user, styles.Text))
	case m.client != nil && m.client.HasCredentials():
		parts = append(parts, bg.Render("●", styles.WarningText)+bg.Space()+bg.Render("signing in", styles.MutedText))
	default:
		parts = append(parts, bg.Render("○", styles.FaintText)+bg.Space()+bg.Render("anonymous", styles.MutedText))
	}

	if snap.UnreadDmails > 0 {
		label := ternary(compact, "✉", "Mail:")
		parts = append(parts, bg.Render(label, styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", snap.UnreadDmails), styles.WarningText.Bold(true)))
	}

	if n := snap.NewPosts(); n > 0 {
		label := ternary(compact, "New:", "Followed:")
		parts = append(parts, bg.Render(label, styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("+%d", n), styles.SuccessText.Bold(true)))
	}

	if ts := m.formatTimestamp(); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.FaintText))
	}

	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText.Bold(true))+bg.Space()+
			bg.Render("retrying...", styles.WarningText))
	case snap.LastError != nil:
		maxErr := ternary(compact, 30, 60)
		parts = append(parts, bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
			bg.Render(truncate(snap.LastError.Error(), maxErr), styles.WarningText))
	}

	if m.toast.text != "" {
		style := ternary(m.toast.danger, styles.DangerText, styles.InfoText)
		maxToast := ternary(compact, 40, 90)
		parts = append(parts, bg.Render(truncate(m.toast.text, maxToast), style))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxWidth(m.width).
		Render(bg.Join(parts, "  "))
}

// formatTimestamp reports when the background poller last refreshed.
func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return ""
	}
	return "updated " + relativeTime(m.snapshot.LastUpdated, m.now(), "15:04")
}

func hostOf(baseURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	return strings.TrimRight(host, "/")
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewPosts:
		detail := ternary(m.posts.focusedPane == 1, "List", "Detail")
		commands = []cmd{
			{"/", "Search"},
			{"enter", detail},
			{"f", "Fav"},
			{"+/-", "Vote"},
			{"d", "Download"},
			{"o", "Open"},
			{"a", "Follow"},
		}
	case ViewComments:
		commands = []cmd{{"j/k", "Scroll"}, {"r", "Reload"}, {"o", "Open"}, {"esc", "Posts"}}
	case ViewPools:
		commands = []cmd{{"/", "Search"}, {"enter", "Posts"}, {"o", "Open"}, {"j/k", "Navigate"}}
	case ViewWiki:
		commands = []cmd{{"/", "Lookup"}, {"enter", "Posts"}, {"o", "Open"}, {"j/k", "Scroll"}}
	case ViewMail:
		if m.mail.reading != nil {
			commands = []cmd{{"j/k", "Scroll"}, {"esc", "Inbox"}, {"r", "Reload"}}
		} else {
			commands = []cmd{{"enter", "Read"}, {"j/k", "Navigate"}, {"r", "Reload"}}
		}
	case ViewFollowed:
		commands = []cmd{
			{"enter", "Posts"},
			{"a", "Add"},
			{"x", "Remove"},
			{"u", "Check"},
			{"C", "Mark seen"},
		}
	case ViewErrors:
		commands = []cmd{{"/", "Filter"}, {"x", "Clear"}, {"r", "Reload"}, {"j/k", "Scroll"}}
	}
	commands = append(commands, cmd{"tab", "View"}, cmd{"?", "More"})

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+2)
	segments = append(segments, bg.Render(m.currentView.String(), styles.AccentText.Bold(true)))
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(bg.Join(segments, "  "))
}
