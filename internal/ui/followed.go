package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snout/internal/store"
)

type followedState struct {
	selected int
}

// followsChangedMsg reports a change to the followed tags table.
type followsChangedMsg struct {
	note string
}

func (m *Model) clampFollowed() {
	m.followed.selected = min(m.followed.selected, max(len(m.snapshot.Follows)-1, 0))
}

func (m Model) selectedFollow() (store.FollowedTag, bool) {
	if m.followed.selected < 0 || m.followed.selected >= len(m.snapshot.Follows) {
		return store.FollowedTag{}, false
	}
	return m.snapshot.Follows[m.followed.selected], true
}

// editFollows runs fn against the database, then republishes the followed
// tags to the state store so every view sees the change.
func (m Model) editFollows(op string, fn func(ctx context.Context, db *store.Store) (string, error)) tea.Cmd {
	if m.db == nil {
		return nil
	}
	db := m.db
	st := m.state
	return m.call(func(ctx context.Context) tea.Msg {
		note, err := fn(ctx, db)
		if err != nil {
			return errMsg{view: noView, op: op, err: err}
		}
		if st != nil {
			follows, err := db.ListFollows(ctx)
			if err != nil {
				return errMsg{view: noView, op: op, err: err}
			}
			st.UpdateFollows(follows, time.Time{})
		}
		return followsChangedMsg{note: note}
	})
}

func (m Model) addFollow(tag string) tea.Cmd {
	now := m.now()
	return m.editFollows("Follow", func(ctx context.Context, db *store.Store) (string, error) {
		tag = store.NormalizeTag(tag)
		if tag == "" {
			return "", nil
		}
		added, err := db.AddFollow(ctx, tag, now)
		if err != nil {
			return "", err
		}
		if !added {
			return "Already following " + tag, nil
		}
		return "Following " + tag, nil
	})
}

func (m Model) removeFollow(tag string) tea.Cmd {
	return m.editFollows("Unfollow", func(ctx context.Context, db *store.Store) (string, error) {
		if _, err := db.RemoveFollow(ctx, tag); err != nil {
			return "", err
		}
		return "Unfollowed " + tag, nil
	})
}

func (m Model) clearFollowCounts(tag string) tea.Cmd {
	return m.editFollows("Mark seen", func(ctx context.Context, db *store.Store) (string, error) {
		return "", db.ClearFollowCounts(ctx, tag)
	})
}

func (m Model) handleFollowedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.AddFollow):
		return m, m.openPrompt(promptFollow, "Follow tags", "", true)
	case key.Matches(msg, m.keys.CheckNow):
		if m.follow == nil || !m.follow.CheckNow() {
			return m, infoCmd("Followed-tag checks are disabled (follow_enabled)")
		}
		return m, infoCmd("Checking followed tags...")
	case key.Matches(msg, m.keys.ClearCounts):
		return m, m.clearFollowCounts("")
	case key.Matches(msg, m.keys.Refresh):
		if m.state != nil {
			return m, fetchSnapshotCmd(m.state)
		}
		return m, nil
	}

	f, ok := m.selectedFollow()
	if !ok {
		return m, nil
	}
	count := len(m.snapshot.Follows)
	switch {
	case key.Matches(msg, m.keys.Down):
		m.followed.selected = min(m.followed.selected+1, count-1)
	case key.Matches(msg, m.keys.Up):
		m.followed.selected = max(m.followed.selected-1, 0)
	case key.Matches(msg, m.keys.Top):
		m.followed.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.followed.selected = count - 1
	case key.Matches(msg, m.keys.RemoveFollow):
		return m, m.removeFollow(f.Tag)
	case key.Matches(msg, m.keys.Focus):
		m.currentView = ViewPosts
		cmds := []tea.Cmd{m.searchPosts(f.Tag)}
		if f.NewCount > 0 {
			cmds = append(cmds, m.clearFollowCounts(f.Tag))
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) renderFollowed() string {
	follows := m.snapshot.Follows
	if len(follows) == 0 {
		return m.renderEmpty("Not following any tags. Press a to follow one")
	}

	styles := m.theme.Styles()
	height := m.contentHeight()
	inner := m.width - 2
	now := m.now()

	tagWidth := max(inner-40, 12)
	start, end := visibleWindow(len(follows), m.followed.selected, height-2)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		f := follows[i]
		selected := i == m.followed.selected
		rowBg := ternary(selected, m.theme.SelectionBg, m.theme.FocusBg)
		bg := NewBgStyle(rowBg)

		tagStyle := styles.Text
		if selected {
			tagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		countStyle := styles.MutedText
		count := "·"
		if f.NewCount > 0 {
			countStyle = styles.SuccessText
			count = fmt.Sprintf("+%d", f.NewCount)
		}

		status := "checked " + relativeTime(f.CheckedTime(), now, m.prefs.DateFormat)
		statusStyle := styles.MutedText
		switch {
		case f.LastError != "":
			status = truncate(f.LastError, 30)
			statusStyle = styles.DangerText
		case !f.Seeded():
			status = "waiting for first check"
		}

		row := bg.Render(padRight(truncate(f.Tag, tagWidth), tagWidth), tagStyle) + bg.Space() +
			bg.Render(padRight(count, 6), countStyle) + bg.Space() +
			bg.Render(status, statusStyle)
		lines = append(lines, bg.FillLine(row, inner))
	}

	title := fmt.Sprintf("Followed tags (%d, %d new)", len(follows), m.snapshot.NewPosts())
	if !m.snapshot.FollowsCheckedAt.IsZero() {
		title += " · last check " + relativeTime(m.snapshot.FollowsCheckedAt, now, m.prefs.DateFormat)
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, height, true)
}
