package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/snout/internal/errlog"
)

// errorsState holds the error log view, newest entries last.
type errorsState struct {
	entries  []errlog.Entry
	filter   string
	filterRe *regexp.Regexp
	matches  int
	viewport viewport.Model
}

type errorsLoadedMsg struct {
	entries []errlog.Entry
	cleared bool
}

func (m Model) loadErrors() tea.Cmd {
	log := m.errlog
	if log == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := log.Entries(ErrorLogLimit)
		if err != nil {
			return errMsg{view: noView, op: "Error log", err: err}
		}
		return errorsLoadedMsg{entries: entries}
	}
}

func (m Model) clearErrors() tea.Cmd {
	log := m.errlog
	if log == nil {
		return nil
	}
	return func() tea.Msg {
		if err := log.Clear(); err != nil {
			return errMsg{view: noView, op: "Clear error log", err: err}
		}
		return errorsLoadedMsg{cleared: true}
	}
}

func (m *Model) handleErrorsLoaded(msg errorsLoadedMsg) {
	m.errs.entries = msg.entries
	m.updateErrors()
	m.errs.viewport.GotoBottom()
	if msg.cleared {
		m.setToast("Error log cleared", false)
	}
}

// applyErrorFilter keeps entries matching query, a case-insensitive regular
// expression. Invalid expressions match literally.
func (m *Model) applyErrorFilter(query string) {
	query = strings.TrimSpace(query)
	m.errs.filter = query
	m.errs.filterRe = nil
	if query != "" {
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
		}
		m.errs.filterRe = re
	}
	m.updateErrors()
	m.errs.viewport.GotoBottom()
}

func (m Model) visibleErrors() []errlog.Entry {
	if m.errs.filterRe == nil {
		return m.errs.entries
	}
	out := make([]errlog.Entry, 0, len(m.errs.entries))
	for _, e := range m.errs.entries {
		if m.errs.filterRe.MatchString(errlog.FormatEntry(e)) {
			out = append(out, e)
		}
	}
	return out
}

func (m Model) handleErrorsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.openPrompt(promptErrors, "Filter error log", m.errs.filter, false)
	case key.Matches(msg, m.keys.Escape):
		if m.errs.filterRe != nil {
			m.applyErrorFilter("")
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadErrors()
	case key.Matches(msg, m.keys.RemoveFollow):
		return m, m.clearErrors()
	}
	m.scrollViewport(&m.errs.viewport, msg)
	return m, nil
}

func (m *Model) resizeErrors() {
	m.errs.viewport.Width = max(m.width-4, 10)
	m.errs.viewport.Height = max(m.contentHeight()-2, 1)
	m.updateErrors()
}

func (m *Model) updateErrors() {
	entries := m.visibleErrors()
	m.errs.matches = len(entries)
	styles := m.theme.Styles()
	if len(entries) == 0 {
		m.errs.viewport.SetContent(styles.MutedText.Render(ternary(m.errs.filter != "", "No matching entries", "No errors recorded")))
		return
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = styles.FaintText.Render(e.Time.Format("2006-01-02 15:04:05")) + " " +
			styles.DangerText.Render(padRight(e.Kind, 18)) + " " +
			styles.AccentText.Render(e.Path) + " " +
			styles.Text.Render(e.Message)
	}
	m.errs.viewport.SetContent(strings.Join(lines, "\n"))
}

func (m Model) renderErrors() string {
	if m.errlog == nil {
		return m.renderEmpty("Error logging is off (error_log_enabled)")
	}
	title := fmt.Sprintf("Error log (%d)", len(m.errs.entries))
	if m.errs.filter != "" {
		title = fmt.Sprintf("Error log (%d/%d) /%s", m.errs.matches, len(m.errs.entries), m.errs.filter)
	}
	return m.renderTitledBox(title, m.errs.viewport.View(), m.width, m.contentHeight(), true)
}
