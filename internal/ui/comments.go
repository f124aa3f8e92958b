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

type commentsState struct {
	postID   int64
	comments []e621.Comment
	loading  bool
	viewport viewport.Model
}

type commentsLoadedMsg struct {
	postID   int64
	comments []e621.Comment
}

// loadCommentsForSelection fetches comments for the selected post unless
// they are already shown.
func (m *Model) loadCommentsForSelection() tea.Cmd {
	post, ok := m.selectedPost()
	if !ok || (post.ID == m.comments.postID && !m.comments.loading) {
		return nil
	}
	return m.loadComments(post.ID)
}

func (m *Model) loadComments(postID int64) tea.Cmd {
	m.comments.postID = postID
	m.comments.comments = nil
	m.comments.loading = true
	m.updateComments()
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		comments, err := client.ListComments(ctx, postID, 1)
		if err != nil {
			return errMsg{view: ViewComments, op: "Comments", err: err}
		}
		return commentsLoadedMsg{postID: postID, comments: comments}
	})
}

func (m *Model) handleCommentsLoaded(msg commentsLoadedMsg) {
	if msg.postID != m.comments.postID {
		return
	}
	m.comments.loading = false
	m.comments.comments = msg.comments
	m.updateComments()
	m.comments.viewport.GotoTop()
}

func (m Model) handleCommentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.comments.postID != 0 {
			return m, m.loadComments(m.comments.postID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewPosts
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if m.comments.postID != 0 {
			return m, openURLCmd(m.prefs.OpenCommand, m.client.PostURL(m.comments.postID))
		}
		return m, nil
	}
	m.scrollViewport(&m.comments.viewport, msg)
	return m, nil
}

func (m *Model) resizeComments() {
	m.comments.viewport.Width = max(m.width-4, 10)
	m.comments.viewport.Height = max(m.contentHeight()-2, 1)
	m.updateComments()
}

func (m *Model) updateComments() {
	m.comments.viewport.SetContent(m.renderCommentContent(m.comments.viewport.Width))
}

func (m Model) renderCommentContent(width int) string {
	styles := m.theme.Styles()
	if m.comments.loading {
		return styles.MutedText.Render("Loading comments...")
	}
	if len(m.comments.comments) == 0 {
		return styles.MutedText.Render("No comments")
	}
	wrap := lipgloss.NewStyle().Width(max(width-2, 10))

	var b strings.Builder
	for i, c := range m.comments.comments {
		if i > 0 {
			b.WriteString(styles.FaintText.Render(strings.Repeat("─", max(width-2, 1))))
			b.WriteString("\n")
		}
		b.WriteString(styles.AccentText.Bold(true).Render(c.CreatorName))
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(relativeTime(c.ParsedCreatedAt(), m.now(), m.prefs.DateFormat)))
		b.WriteString(" ")
		scoreStyle := styles.MutedText
		switch {
		case c.Score > 0:
			scoreStyle = styles.SuccessText
		case c.Score < 0:
			scoreStyle = styles.DangerText
		}
		b.WriteString(scoreStyle.Render(fmt.Sprintf("%+d", c.Score)))
		if c.IsSticky {
			b.WriteString(" ")
			b.WriteString(styles.WarningText.Render("sticky"))
		}
		b.WriteString("\n")
		if c.IsHidden {
			b.WriteString(styles.FaintText.Render("[hidden]"))
		} else {
			body := dtext.Plain(dtext.Parse(c.Body, dtext.Options{BaseURL: m.baseURL()}))
			b.WriteString(wrap.Render(styles.Text.Render(body)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderComments() string {
	if m.comments.postID == 0 {
		return m.renderEmpty("Select a post to read its comments")
	}
	title := fmt.Sprintf("Comments on #%d (%d)", m.comments.postID, len(m.comments.comments))
	return m.renderTitledBox(title, m.comments.viewport.View(), m.width, m.contentHeight(), true)
}
