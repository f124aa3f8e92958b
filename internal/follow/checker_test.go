package follow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/snout/internal/blacklist"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/errlog"
	"github.com/five82/snout/internal/store"
)

// fakeSite serves /posts.json from an in-memory list of posts per tag.
type fakeSite struct {
	mu      sync.Mutex
	posts   map[string][]e621.Post
	failing map[string]bool
	queries []string
}

func (f *fakeSite) handler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("tags")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)

	fields := strings.Fields(query)
	tag := fields[0]
	if f.failing[tag] {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	var after int64
	for _, field := range fields[1:] {
		if v, ok := strings.CutPrefix(field, "id:>"); ok {
			after, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	out := make([]e621.Post, 0)
	for _, p := range f.posts[tag] {
		if p.ID > after {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"posts": out})
}

func (f *fakeSite) add(tag string, ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		p := e621.Post{ID: id, Rating: "s", Tags: e621.PostTags{General: []string{tag}}}
		if id%10 == 0 {
			p.Tags.General = append(p.Tags.General, "gore")
		}
		// newest first, like the site
		f.posts[tag] = append([]e621.Post{p}, f.posts[tag]...)
	}
}

type harness struct {
	site    *fakeSite
	store   *store.Store
	checker *Checker
	reports []Report
	errors  *errlog.Log
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	site := &fakeSite{posts: map[string][]e621.Post{}, failing: map[string]bool{}}
	server := httptest.NewServer(http.HandlerFunc(site.handler))
	t.Cleanup(server.Close)

	client, err := e621.NewClient(e621.Options{Host: server.URL})
	require.NoError(t, err)

	name := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{site: site, store: st, errors: errlog.New(filepath.Join(t.TempDir(), "errors.log"))}
	notifier := Notifiers{
		LogNotifier{Errors: h.errors},
		NotifierFunc(func(_ context.Context, r Report) { h.reports = append(h.reports, r) }),
	}
	now := time.Unix(1_700_000_000, 0)
	h.checker = NewChecker(client, st, notifier, Options{
		BatchSize: 2,
		Blacklist: blacklist.Parse("gore"),
		Now:       func() time.Time { return now },
	})
	return h
}

func (h *harness) follow(t *testing.T, tags ...string) {
	t.Helper()
	for _, tag := range tags {
		_, err := h.store.AddFollow(context.Background(), tag, time.Unix(1_600_000_000, 0))
		require.NoError(t, err)
	}
}

func TestChecker_FirstCheckOnlySeeds(t *testing.T) {
	h := newHarness(t)
	h.site.add("fox", 1, 2, 3)
	h.follow(t, "fox")

	report, err := h.checker.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"fox"}, report.Seeded)
	require.Empty(t, report.Updates)
	require.Equal(t, []string{"fox"}, h.site.queries)

	f, err := h.store.GetFollow(context.Background(), "fox")
	require.NoError(t, err)
	require.Equal(t, int64(3), f.LastSeenID)
	require.Zero(t, f.NewCount)
}

func TestChecker_CountsNewPostsSkippingBlacklist(t *testing.T) {
	h := newHarness(t)
	h.site.add("fox", 1, 2)
	h.follow(t, "fox")
	ctx := context.Background()

	_, err := h.checker.Check(ctx)
	require.NoError(t, err)

	h.site.add("fox", 5, 10, 11)
	report, err := h.checker.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, []Update{{Tag: "fox", NewPosts: 2, NewestID: 11}}, report.Updates)
	require.Equal(t, 2, report.TotalNew())
	require.Equal(t, "fox id:>2", h.site.queries[len(h.site.queries)-1])

	f, err := h.store.GetFollow(ctx, "fox")
	require.NoError(t, err)
	require.Equal(t, int64(11), f.LastSeenID)
	require.Equal(t, 2, f.NewCount)

	report, err = h.checker.Check(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Updates)
	require.Equal(t, "fox id:>11", h.site.queries[len(h.site.queries)-1])
}

func TestChecker_FailuresAreReportedAndLogged(t *testing.T) {
	h := newHarness(t)
	h.site.add("fox", 1)
	h.site.add("wolf", 4)
	h.site.failing["wolf"] = true
	h.follow(t, "fox", "wolf", "cat")
	ctx := context.Background()

	report, err := h.checker.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, report.Checked)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "wolf", report.Failures[0].Tag)
	require.ElementsMatch(t, []string{"cat", "fox"}, report.Seeded)

	entries, err := h.errors.Entries(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "SERVER_DOWN", entries[0].Kind)

	wolf, err := h.store.GetFollow(ctx, "wolf")
	require.NoError(t, err)
	require.False(t, wolf.Seeded())
	require.NotEmpty(t, wolf.LastError)

	// A failed first check seeds on the next successful run.
	h.site.failing["wolf"] = false
	report, err = h.checker.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"wolf"}, report.Seeded)
	require.Len(t, h.reports, 2)
}

func TestChecker_RunFailsWhenEveryTagFails(t *testing.T) {
	h := newHarness(t)
	h.site.failing["fox"] = true
	h.follow(t, "fox")

	err := h.checker.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fox")
	require.Equal(t, 1, h.checker.LastReport().Checked)
}

func TestChecker_NoFollows(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.checker.Run(context.Background()))
	require.Equal(t, JobName, h.checker.Name())
}

func TestChecker_CanceledContext(t *testing.T) {
	h := newHarness(t)
	h.follow(t, "fox")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.checker.Check(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
