package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/snout/internal/blacklist"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/errlog"
	"github.com/five82/snout/internal/prefs"
	"github.com/five82/snout/internal/state"
	"github.com/five82/snout/internal/store"
)

// fakeClient implements Client. Methods the tests do not override panic
// through the nil embedded interface.
type fakeClient struct {
	e621.API
	queries  []e621.PostQuery
	posts    []e621.Post
	returned int
	err      error
	creds    bool
}

func (f *fakeClient) SearchPostPage(_ context.Context, q e621.PostQuery) (e621.PostPage, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return e621.PostPage{}, f.err
	}
	returned := f.returned
	if returned == 0 {
		returned = len(f.posts)
	}
	return e621.PostPage{Posts: f.posts, Returned: returned}, nil
}

func (f *fakeClient) OpenFile(context.Context, string) (io.ReadCloser, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeClient) BaseURL() string         { return "https://e926.net" }
func (f *fakeClient) PostURL(id int64) string { return "https://e926.net/posts/1" }
func (f *fakeClient) HasCredentials() bool    { return f.creds }

func newTestModel(t *testing.T, client *fakeClient) Model {
	t.Helper()
	m := New(Options{Client: client})
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func posts(ids ...int64) []e621.Post {
	out := make([]e621.Post, len(ids))
	for i, id := range ids {
		out[i] = e621.Post{ID: id, Rating: "s", Tags: e621.PostTags{General: []string{"fox"}}}
	}
	return out
}

func TestTabCyclesViews(t *testing.T) {
	m := newTestModel(t, &fakeClient{})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.currentView != ViewComments {
		t.Fatalf("after tab view = %v, want Comments", m.currentView)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	if m.currentView != ViewErrors {
		t.Fatalf("shift+tab from posts = %v, want Errors", m.currentView)
	}

	next, _ = m.Update(runeKey("6"))
	m = next.(Model)
	if m.currentView != ViewFollowed {
		t.Fatalf("6 = %v, want Followed", m.currentView)
	}
}

func TestEveryViewRenders(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.snapshot = state.Snapshot{
		HasUser:      true,
		User:         e621.User{Name: "tester"},
		UnreadDmails: 2,
		Follows:      []store.FollowedTag{{Tag: "wolf", NewCount: 3}},
	}
	next, _ := m.Update(postsLoadedMsg{seq: m.posts.seq, page: 1, posts: posts(1, 2), raw: 2})
	m = next.(Model)

	for v := ViewPosts; v < viewCount; v++ {
		m.currentView = v
		out := m.View()
		if !strings.Contains(out, "snout") {
			t.Fatalf("%v view is missing the header", v)
		}
	}
}

func TestPostsPagingDedupesAndDropsStale(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.prefs.PostsPerPage = 3
	m.searchPosts("fox")
	seq := m.posts.seq

	next, _ := m.Update(postsLoadedMsg{seq: seq - 1, page: 1, posts: posts(9), raw: 1})
	m = next.(Model)
	if len(m.posts.posts) != 0 || !m.posts.loading {
		t.Fatalf("stale page applied: %d posts, loading=%v", len(m.posts.posts), m.posts.loading)
	}

	next, _ = m.Update(postsLoadedMsg{seq: seq, page: 1, posts: posts(1, 2, 3), raw: 3})
	m = next.(Model)
	if m.posts.exhausted {
		t.Fatalf("full page should not mark the search exhausted")
	}

	next, _ = m.Update(postsLoadedMsg{seq: seq, page: 2, posts: posts(3, 4), raw: 2})
	m = next.(Model)
	if got := len(m.posts.posts); got != 4 {
		t.Fatalf("posts = %d, want 4 after dedupe", got)
	}
	if !m.posts.exhausted || m.posts.page != 2 {
		t.Fatalf("exhausted=%v page=%d, want true/2", m.posts.exhausted, m.posts.page)
	}
	if cmd := m.nextPage(); cmd != nil {
		t.Fatalf("nextPage after the last page should be nil")
	}
}

func TestPageWithDroppedRowsIsNotExhausted(t *testing.T) {
	client := &fakeClient{posts: posts(1, 2), returned: 3}
	m := newTestModel(t, client)
	m.prefs.PostsPerPage = 3
	m.searchPosts("fox")

	msg := m.fetchPosts("fox", 1, m.posts.seq)()
	loaded, ok := msg.(postsLoadedMsg)
	if !ok {
		t.Fatalf("fetchPosts returned %T", msg)
	}
	if loaded.raw != 3 || len(loaded.posts) != 2 {
		t.Fatalf("raw=%d posts=%d, want 3/2", loaded.raw, len(loaded.posts))
	}
	next, _ := m.Update(loaded)
	m = next.(Model)
	if m.posts.exhausted {
		t.Fatalf("a full page with malformed rows should not end the search")
	}
}

func TestBlacklistedPageFetchesNext(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.prefs.PostsPerPage = 2
	m.searchPosts("fox")

	next, cmd := m.Update(postsLoadedMsg{seq: m.posts.seq, page: 1, posts: nil, raw: 2, hidden: 2})
	m = next.(Model)
	if cmd == nil || !m.posts.loading {
		t.Fatalf("a fully hidden page should request the next one")
	}
	if m.posts.hidden != 2 {
		t.Fatalf("hidden = %d, want 2", m.posts.hidden)
	}
}

func TestFetchPostsAppliesPrefsAndBlacklist(t *testing.T) {
	client := &fakeClient{posts: []e621.Post{
		{ID: 1, Tags: e621.PostTags{General: []string{"fox"}}},
		{ID: 2, Tags: e621.PostTags{General: []string{"fox", "gore"}}},
	}}
	m := newTestModel(t, client)
	m.prefs.RatingFilter = []string{"s"}
	m.prefs.SortOrder = "score"
	m.prefs.HideBlacklisted = true
	m.blacklist = blacklist.Parse("gore")

	msg := m.fetchPosts("fox", 1, 7)()
	loaded, ok := msg.(postsLoadedMsg)
	if !ok {
		t.Fatalf("fetchPosts returned %T", msg)
	}
	if loaded.seq != 7 || loaded.raw != 2 || loaded.hidden != 1 || len(loaded.posts) != 1 {
		t.Fatalf("unexpected page %+v", loaded)
	}
	if got := client.queries[0].Tags; got != "fox rating:s order:score" {
		t.Fatalf("query tags = %q", got)
	}
}

func TestFailedCallRecordsErrorAndToasts(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	m := newTestModel(t, client)
	var recorded []error
	m.recordError = func(_ context.Context, err error) { recorded = append(recorded, err) }
	m.posts.loading = true

	msg := m.fetchPosts("fox", 1, m.posts.seq)()
	if len(recorded) != 1 {
		t.Fatalf("recorded %d errors, want 1", len(recorded))
	}
	next, _ := m.Update(msg)
	m = next.(Model)
	if m.posts.loading {
		t.Fatalf("error should clear the loading flag")
	}
	if !m.toast.danger || !strings.HasPrefix(m.toast.text, "Search: ") {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestToastExpiresOnTick(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	next, _ := m.Update(infoMsg("saved"))
	m = next.(Model)
	if m.toast.text != "saved" {
		t.Fatalf("toast = %q, want saved", m.toast.text)
	}

	next, _ = m.Update(tickMsg(m.now().Add(time.Second)))
	m = next.(Model)
	if m.toast.text == "" {
		t.Fatalf("toast cleared too early")
	}

	next, _ = m.Update(tickMsg(m.now().Add(ToastDuration)))
	m = next.(Model)
	if m.toast.text != "" {
		t.Fatalf("toast should expire, got %q", m.toast.text)
	}
}

func TestModalCapturesKeys(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	next, _ := m.Update(runeKey("/"))
	m = next.(Model)
	if m.modal == nil {
		t.Fatalf("/ should open the search prompt")
	}

	// e quits outside a prompt; inside it is text.
	next, _ = m.Update(runeKey("e"))
	m = next.(Model)
	if m.modal == nil {
		t.Fatalf("typing should keep the prompt open")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.modal != nil {
		t.Fatalf("esc should close the prompt")
	}
}

func TestPromptSubmitSearchesPosts(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.currentView = ViewWiki
	next, cmd := m.Update(promptSubmitMsg{purpose: promptPosts, value: "  wolf   solo "})
	m = next.(Model)
	if m.currentView != ViewPosts || m.posts.query != "wolf solo" || cmd == nil {
		t.Fatalf("view=%v query=%q cmd=%v", m.currentView, m.posts.query, cmd != nil)
	}
}

func TestErrorFilter(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.errs.entries = []errlog.Entry{
		{Kind: "timeout", Path: "/posts.json", Message: "deadline exceeded"},
		{Kind: "auth", Path: "/favorites.json", Message: "401"},
	}

	m.applyErrorFilter("TIMEOUT")
	if got := len(m.visibleErrors()); got != 1 {
		t.Fatalf("regex filter matched %d, want 1", got)
	}

	m.applyErrorFilter("favorites.json")
	if got := m.visibleErrors(); len(got) != 1 || got[0].Kind != "auth" {
		t.Fatalf("filter = %+v", got)
	}

	m.applyErrorFilter("[unclosed")
	if got := len(m.visibleErrors()); got != 0 {
		t.Fatalf("literal fallback matched %d, want 0", got)
	}

	m.currentView = ViewErrors
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.errs.filter != "" || len(m.visibleErrors()) != 2 {
		t.Fatalf("esc should clear the filter, got %q", m.errs.filter)
	}
}

func TestFollowedSelectionClampsToSnapshot(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.currentView = ViewFollowed
	next, _ := m.Update(snapshotMsg(state.Snapshot{Follows: []store.FollowedTag{{Tag: "a"}, {Tag: "b"}, {Tag: "c"}}}))
	m = next.(Model)

	next, _ = m.Update(runeKey("G"))
	m = next.(Model)
	if m.followed.selected != 2 {
		t.Fatalf("selected = %d, want 2", m.followed.selected)
	}

	next, _ = m.Update(snapshotMsg(state.Snapshot{Follows: []store.FollowedTag{{Tag: "a"}}}))
	m = next.(Model)
	if m.followed.selected != 0 {
		t.Fatalf("selected = %d after shrink, want 0", m.followed.selected)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	m := New(Options{Query: "  fox "})
	if m.prefs.PostsPerPage != prefs.Default().PostsPerPage {
		t.Fatalf("PostsPerPage = %d", m.prefs.PostsPerPage)
	}
	if m.initial != "fox" || m.pollTick != DefaultUIInterval || m.timeout != DefaultRequestTimeout {
		t.Fatalf("defaults not applied: %q %v %v", m.initial, m.pollTick, m.timeout)
	}
}
