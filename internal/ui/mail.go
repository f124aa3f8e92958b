package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
)

type mailState struct {
	dmails   []e621.Dmail
	selected int
	loading  bool
	loaded   bool

	// reading is the open message, nil while the list has focus.
	reading *e621.Dmail
	reader  viewport.Model
}

type mailListMsg struct {
	dmails []e621.Dmail
}

type mailReadMsg struct {
	dmail e621.Dmail
}

func (m *Model) loadMail() tea.Cmd {
	if !m.client.HasCredentials() {
		m.mail.loaded = true
		return nil
	}
	m.mail.loading = true
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		dmails, err := client.ListDmails(ctx, e621.DmailQuery{Folder: e621.FolderReceived})
		if err != nil {
			return errMsg{view: ViewMail, op: "Mail", err: err}
		}
		return mailListMsg{dmails: dmails}
	})
}

func (m *Model) handleMailList(msg mailListMsg) {
	m.mail.loading = false
	m.mail.loaded = true
	m.mail.dmails = msg.dmails
	m.mail.selected = min(m.mail.selected, max(len(msg.dmails)-1, 0))
}

// readMail fetches the full message and marks it read.
func (m Model) readMail(d e621.Dmail) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		full, err := client.GetDmail(ctx, d.ID)
		if err != nil {
			return errMsg{view: ViewMail, op: "Read mail", err: err}
		}
		if !full.IsRead {
			if err := client.MarkDmailRead(ctx, d.ID); err != nil {
				return errMsg{view: ViewMail, op: "Mark read", err: err}
			}
			full.IsRead = true
		}
		return mailReadMsg{dmail: *full}
	})
}

func (m *Model) handleMailRead(msg mailReadMsg) {
	d := msg.dmail
	for i := range m.mail.dmails {
		if m.mail.dmails[i].ID == d.ID {
			m.mail.dmails[i].IsRead = d.IsRead
		}
	}
	m.mail.reading = &d
	m.updateMailReader()
	m.mail.reader.GotoTop()
}

func (m Model) handleMailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Refresh) {
		return m, m.loadMail()
	}
	if m.mail.reading != nil {
		if key.Matches(msg, m.keys.Escape) {
			m.mail.reading = nil
			return m, nil
		}
		m.scrollViewport(&m.mail.reader, msg)
		return m, nil
	}

	count := len(m.mail.dmails)
	if count == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		m.mail.selected = min(m.mail.selected+1, count-1)
	case key.Matches(msg, m.keys.Up):
		m.mail.selected = max(m.mail.selected-1, 0)
	case key.Matches(msg, m.keys.Top):
		m.mail.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.mail.selected = count - 1
	case key.Matches(msg, m.keys.Focus):
		return m, m.readMail(m.mail.dmails[m.mail.selected])
	}
	return m, nil
}

func (m *Model) resizeMail() {
	_, detailWidth := splitWidths(m.width)
	m.mail.reader.Width = max(detailWidth-4, 10)
	m.mail.reader.Height = max(m.contentHeight()-2, 1)
	m.updateMailReader()
}

func (m *Model) updateMailReader() {
	d := m.mail.reading
	if d == nil {
		m.mail.reader.SetContent("")
		return
	}
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(d.Title))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("From %s to %s, %s", d.FromName, d.ToName,
		relativeTime(d.ParsedCreatedAt(), m.now(), m.prefs.DateFormat))))
	b.WriteString("\n\n")
	body := dtext.Plain(dtext.Parse(d.Body, dtext.Options{BaseURL: m.baseURL()}))
	b.WriteString(lipgloss.NewStyle().Width(m.mail.reader.Width).Render(body))
	m.mail.reader.SetContent(b.String())
}

func (m Model) renderMail() string {
	if !m.client.HasCredentials() {
		return m.renderEmpty("Log in with `snout login` to read mail")
	}
	if len(m.mail.dmails) == 0 {
		return m.renderEmpty(ternary(m.mail.loading, "Loading mail...", "No messages"))
	}

	height := m.contentHeight()
	listWidth, detailWidth := splitWidths(m.width)
	styles := m.theme.Styles()
	inner := listWidth - 2

	unread := 0
	start, end := visibleWindow(len(m.mail.dmails), m.mail.selected, height-2)
	lines := make([]string, 0, end-start)
	for i, d := range m.mail.dmails {
		if !d.IsRead {
			unread++
		}
		if i < start || i >= end {
			continue
		}
		selected := i == m.mail.selected
		rowBg := ternary(selected, m.theme.SelectionBg, ternary(m.mail.reading == nil, m.theme.FocusBg, m.theme.SurfaceAlt))
		bg := NewBgStyle(rowBg)
		marker := bg.Render(ternary(d.IsRead, " ", "●"), styles.WarningText)
		titleStyle := styles.Text
		if selected {
			titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		} else if !d.IsRead {
			titleStyle = styles.Text.Bold(true)
		}
		from := truncate(d.FromName, 14)
		row := marker + bg.Space() + bg.Render(padRight(from, 14), styles.MutedText) + bg.Space() +
			bg.Render(truncate(d.Title, max(inner-18, 4)), titleStyle)
		lines = append(lines, bg.FillLine(row, inner))
	}
	title := fmt.Sprintf("Inbox (%d, %d unread)", len(m.mail.dmails), unread)
	listPane := m.renderTitledBox(title, strings.Join(lines, "\n"), listWidth, height, m.mail.reading == nil)

	reader := styles.MutedText.Render("enter: read message")
	if m.mail.reading != nil {
		reader = m.mail.reader.View()
	}
	detailPane := m.renderTitledBox("Message", reader, detailWidth, height, m.mail.reading != nil)
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}
