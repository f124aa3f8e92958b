package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
)

type wikiState struct {
	title    string
	page     *e621.WikiPage
	rendered string
	loading  bool
	viewport viewport.Model
}

type wikiLoadedMsg struct {
	title    string
	page     *e621.WikiPage
	rendered string
}

// wikiTermForQuery picks the first plain tag of a search query, skipping
// negations and metatags.
func wikiTermForQuery(query string) string {
	for _, term := range strings.Fields(query) {
		if strings.HasPrefix(term, "-") || strings.Contains(term, ":") {
			continue
		}
		if t := strings.TrimLeft(term, "~"); t != "" && !strings.ContainsAny(t, "*") {
			return t
		}
	}
	return ""
}

func (m *Model) loadWiki(title string) tea.Cmd {
	title = strings.TrimSpace(title)
	m.wiki.title = title
	m.wiki.loading = true
	client := m.client
	width := max(m.wiki.viewport.Width-2, 20)
	style := m.prefs.WikiStyle
	base := m.baseURL()
	return m.call(func(ctx context.Context) tea.Msg {
		page, err := client.GetWikiPage(ctx, title)
		if err != nil {
			return errMsg{view: ViewWiki, op: "Wiki " + title, err: err}
		}
		doc := dtext.Parse(page.Body, dtext.Options{BaseURL: base})
		rendered, err := dtext.Terminal(doc, width, style)
		if err != nil {
			logutil.GetLogger(ctx).Warn("render wiki page failed, using plain text", zap.String("title", title), zap.Error(err))
			rendered = dtext.Plain(doc)
		}
		return wikiLoadedMsg{title: title, page: page, rendered: rendered}
	})
}

func (m *Model) handleWikiLoaded(msg wikiLoadedMsg) {
	if msg.title != m.wiki.title {
		return
	}
	m.wiki.loading = false
	m.wiki.page = msg.page
	m.wiki.rendered = msg.rendered
	m.wiki.viewport.SetContent(msg.rendered)
	m.wiki.viewport.GotoTop()
}

func (m Model) handleWikiKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.openPrompt(promptWiki, "Wiki page", m.wiki.title, true)
	case key.Matches(msg, m.keys.Refresh):
		if m.wiki.title != "" {
			m.dropCache()
			return m, m.loadWiki(m.wiki.title)
		}
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		// Search posts tagged with the page title.
		if m.wiki.page != nil {
			m.currentView = ViewPosts
			return m, m.searchPosts(m.wiki.page.Title)
		}
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if m.wiki.page != nil {
			return m, openURLCmd(m.prefs.OpenCommand, fmt.Sprintf("%s/wiki_pages/%d", strings.TrimRight(m.baseURL(), "/"), m.wiki.page.ID))
		}
		return m, nil
	}
	m.scrollViewport(&m.wiki.viewport, msg)
	return m, nil
}

func (m *Model) resizeWiki() {
	// Pages keep the wrap width they were rendered at until reloaded.
	m.wiki.viewport.Width = max(m.width-4, 10)
	m.wiki.viewport.Height = max(m.contentHeight()-2, 1)
	m.wiki.viewport.SetContent(m.wiki.rendered)
}

func (m Model) renderWiki() string {
	switch {
	case m.wiki.loading && m.wiki.page == nil:
		return m.renderEmpty("Loading " + m.wiki.title + "...")
	case m.wiki.page == nil:
		return m.renderEmpty("Press / to look up a wiki page")
	}
	title := m.wiki.page.DisplayTitle()
	if m.wiki.loading {
		title += " …"
	}
	if m.wiki.page.IsLocked {
		title += " (locked)"
	}
	return m.renderTitledBox(title, m.wiki.viewport.View(), m.width, m.contentHeight(), true)
}
