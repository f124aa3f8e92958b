package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/snout/internal/apierr"
	"github.com/five82/snout/internal/state"
)

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// startSearchMsg asks the posts view to run a search.
type startSearchMsg struct{ query string }

// infoMsg is shown as a non-error toast.
type infoMsg string

// errMsg reports a failed operation. view is the view whose loading state
// the failure ends.
type errMsg struct {
	view View
	op   string
	err  error
}

func (e errMsg) text() string {
	msg := apierr.Message(e.err)
	if e.op == "" {
		return msg
	}
	return e.op + ": " + msg
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// dropCache discards cached lookups so a reload hits the site.
func (m Model) dropCache() {
	if c, ok := m.client.(interface{ PurgeCache() }); ok {
		c.PurgeCache()
	}
}

// call runs fn off the UI goroutine under the request timeout. Failures
// are recorded before the message reaches Update.
func (m Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return m.callWithin(m.timeout, fn)
}

func (m Model) callWithin(timeout time.Duration, fn func(ctx context.Context) tea.Msg) tea.Cmd {
	parent := m.ctx
	record := m.recordError
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		msg := fn(ctx)
		if e, ok := msg.(errMsg); ok {
			if errors.Is(e.err, context.Canceled) && parent.Err() != nil {
				return nil
			}
			if record != nil {
				record(parent, e.err)
			}
		}
		return msg
	}
}
