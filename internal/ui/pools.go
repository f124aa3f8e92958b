package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
)

type poolsState struct {
	query    string
	pools    []e621.Pool
	selected int
	loading  bool
	loaded   bool
}

type poolsLoadedMsg struct {
	query string
	pools []e621.Pool
}

func (m *Model) searchPools(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	m.pools.query = query
	m.pools.loading = true
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		pools, err := client.SearchPools(ctx, e621.PoolQuery{Name: query})
		if err != nil {
			return errMsg{view: ViewPools, op: "Pools", err: err}
		}
		return poolsLoadedMsg{query: query, pools: pools}
	})
}

func (m *Model) handlePoolsLoaded(msg poolsLoadedMsg) {
	if msg.query != m.pools.query {
		return
	}
	m.pools.loading = false
	m.pools.loaded = true
	m.pools.pools = msg.pools
	m.pools.selected = 0
}

func (m Model) handlePoolsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.openPrompt(promptPools, "Search pools", m.pools.query, false)
	case key.Matches(msg, m.keys.Refresh):
		m.dropCache()
		return m, m.searchPools(m.pools.query)
	}

	count := len(m.pools.pools)
	if count == 0 {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		m.pools.selected = min(m.pools.selected+1, count-1)
	case key.Matches(msg, m.keys.Up):
		m.pools.selected = max(m.pools.selected-1, 0)
	case key.Matches(msg, m.keys.Top):
		m.pools.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.pools.selected = count - 1
	case key.Matches(msg, m.keys.Focus):
		pool := m.pools.pools[m.pools.selected]
		m.currentView = ViewPosts
		return m, m.searchPosts(fmt.Sprintf("pool:%d", pool.ID))
	case key.Matches(msg, m.keys.Open):
		pool := m.pools.pools[m.pools.selected]
		return m, openURLCmd(m.prefs.OpenCommand, fmt.Sprintf("%s/pools/%d", strings.TrimRight(m.baseURL(), "/"), pool.ID))
	}
	return m, nil
}

func (m Model) renderPools() string {
	if len(m.pools.pools) == 0 {
		switch {
		case m.pools.loading:
			return m.renderEmpty("Loading pools...")
		case m.pools.query != "":
			return m.renderEmpty("No pools match " + m.pools.query)
		default:
			return m.renderEmpty("No pools. Press / to search")
		}
	}

	height := m.contentHeight()
	listWidth, detailWidth := splitWidths(m.width)
	styles := m.theme.Styles()

	title := "Pools"
	if m.pools.query != "" {
		title = "Pools: " + m.pools.query
	}
	title = fmt.Sprintf("%s (%d)", title, len(m.pools.pools))

	inner := listWidth - 2
	start, end := visibleWindow(len(m.pools.pools), m.pools.selected, height-2)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		pool := m.pools.pools[i]
		selected := i == m.pools.selected
		rowBg := ternary(selected, m.theme.SelectionBg, m.theme.FocusBg)
		bg := NewBgStyle(rowBg)
		count := fmt.Sprintf("%4d", pool.PostCount)
		nameStyle := styles.Text
		if selected {
			nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		row := bg.Render(count, styles.MutedText) + bg.Space() +
			bg.Render(truncate(pool.DisplayName(), max(inner-len(count)-2, 4)), nameStyle)
		lines = append(lines, bg.FillLine(row, inner))
	}
	listPane := m.renderTitledBox(title, strings.Join(lines, "\n"), listWidth, height, true)

	pool := m.pools.pools[m.pools.selected]
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(pool.DisplayName()))
	b.WriteString("\n\n")
	for _, row := range [][2]string{
		{"ID", fmt.Sprintf("%d", pool.ID)},
		{"Category", pool.Category},
		{"Posts", fmt.Sprintf("%d", pool.PostCount)},
		{"Creator", pool.CreatorName},
		{"Active", ternary(pool.IsActive, "yes", "no")},
	} {
		if row[1] == "" {
			continue
		}
		b.WriteString(styles.MutedText.Render(padRight(row[0], 10)))
		b.WriteString(styles.Text.Render(row[1]))
		b.WriteString("\n")
	}
	if desc := strings.TrimSpace(pool.Description); desc != "" {
		b.WriteString("\n")
		text := dtext.Plain(dtext.Parse(desc, dtext.Options{BaseURL: m.baseURL()}))
		b.WriteString(lipgloss.NewStyle().Width(max(detailWidth-4, 10)).Render(text))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("enter: show posts · o: open in browser"))
	detailPane := m.renderTitledBox("Pool", b.String(), detailWidth, height, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}
