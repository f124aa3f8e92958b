package e621

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/snout/internal/apierr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts.Host = server.URL
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndSafeMode(t *testing.T) {
	u, err := parseBaseURL("", false)
	require.NoError(t, err)
	require.Equal(t, "https", u.Scheme)
	require.Equal(t, HostE621, u.Host)

	u, err = parseBaseURL("", true)
	require.NoError(t, err)
	require.Equal(t, HostE926, u.Host)

	u, err = parseBaseURL("https://e621.net/posts?x=1#frag", true)
	require.NoError(t, err)
	require.Equal(t, "https://e926.net", u.String())

	u, err = parseBaseURL("http://127.0.0.1:9000", true)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", u.Host)
}

func TestUserAgent(t *testing.T) {
	require.Equal(t, "snout/1.2 (by fox on e621)", userAgent("1.2", "fox"))
	require.Equal(t, "snout/0.1 (by anonymous on e621)", userAgent("", ""))
}

func TestClient_SearchPostsEncodesQuery(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	var gotAgent string
	var gotUser, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/posts.json", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAgent = r.Header.Get("User-Agent")
		gotUser, gotKey, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"posts":[{"id":7,"rating":"s","file":{"url":"https://static1.e621.net/a.png","ext":"png"}},{"id":0}]}`))
	}, Options{Username: "fox", APIKey: "secret", Version: "1.0"})

	posts, err := c.SearchPosts(testContext(t), PostQuery{Tags: "  wolf   rating:s ", Page: 2, Limit: 1000})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, int64(7), posts[0].ID)
	require.Equal(t, "wolf rating:s", gotQuery.Get("tags"))
	require.Equal(t, "2", gotQuery.Get("page"))
	require.Equal(t, "320", gotQuery.Get("limit"))
	require.Equal(t, "snout/1.0 (by fox on e621)", gotAgent)
	require.Equal(t, "fox", gotUser)
	require.Equal(t, "secret", gotKey)
}

func TestClient_SearchPostPageCountsDroppedRows(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"posts":[{"id":1,"rating":"s"},{"id":2},{"id":3,"rating":"e"}]}`))
	}, Options{})

	page, err := c.SearchPostPage(testContext(t), PostQuery{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, 3, page.Returned)
	require.Len(t, page.Posts, 2)
}

func TestClient_ListsDropRecordsWithoutID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pools.json":
			_, _ = w.Write([]byte(`[{"id":3,"name":"a"},{"id":0},{}]`))
		case "/comments.json":
			_, _ = w.Write([]byte(`{"comments":[{"id":0,"body":"ghost"},{"id":8,"body":"hi"}]}`))
		case "/wiki_pages.json":
			_, _ = w.Write([]byte(`[{"title":"untitled"},{"id":4,"title":"fox"}]`))
		case "/notes.json":
			_, _ = w.Write([]byte(`[{}]`))
		}
	}, Options{})
	ctx := testContext(t)

	pools, err := c.SearchPools(ctx, PoolQuery{})
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, int64(3), pools[0].ID)

	comments, err := c.ListComments(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "hi", comments[0].Body)

	pages, err := c.SearchWikiPages(ctx, "fox", 1)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	notes, err := c.ListNotes(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, notes)
	require.Empty(t, notes)
}

func TestClient_EmptyListsAreNeverNil(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"posts":[]}`, `[]`, `{}`, ``} {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, Options{})
		posts, err := c.SearchPosts(testContext(t), PostQuery{})
		require.NoError(t, err, body)
		require.NotNil(t, posts, body)
		require.Empty(t, posts, body)
	}
}

func TestClient_DefaultLimitFollowsPerPage(t *testing.T) {
	t.Parallel()

	var gotLimit string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`[]`))
	}, Options{PerPage: 40})

	_, err := c.SearchPools(testContext(t), PoolQuery{Name: "my pool"})
	require.NoError(t, err)
	require.Equal(t, "40", gotLimit)
}

func TestClient_WritesRequireCredentials(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, Options{})
	ctx := testContext(t)

	_, err := c.Favorite(ctx, 1)
	require.ErrorIs(t, err, apierr.ErrAuth)
	require.ErrorIs(t, c.Unfavorite(ctx, 1), apierr.ErrAuth)
	_, err = c.Vote(ctx, 1, 1, false)
	require.ErrorIs(t, err, apierr.ErrAuth)
	_, err = c.CreateComment(ctx, 1, "hi")
	require.ErrorIs(t, err, apierr.ErrAuth)
	_, err = c.SendDmail(ctx, "fox", "hi", "there")
	require.ErrorIs(t, err, apierr.ErrAuth)
	require.ErrorIs(t, c.AddToPostSet(ctx, 1, []int64{2}), apierr.ErrAuth)
	_, err = c.CurrentUser(ctx)
	require.ErrorIs(t, err, apierr.ErrAuth)
	require.Zero(t, calls.Load())
}

func TestClient_FavoriteSendsForm(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPostID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		require.NoError(t, r.ParseForm())
		gotPostID = r.PostForm.Get("post_id")
		_ = json.NewEncoder(w).Encode(map[string]any{"post": Post{ID: 9, Rating: "s"}})
	}, Options{Username: "fox", APIKey: "k"})

	post, err := c.Favorite(testContext(t), 9)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "9", gotPostID)
	require.True(t, post.IsFavorited)
}

func TestClient_VoteNormalizesScore(t *testing.T) {
	t.Parallel()

	var gotScore, gotNoUnvote string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/posts/3/votes.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotScore = r.PostForm.Get("score")
		gotNoUnvote = r.PostForm.Get("no_unvote")
		_, _ = w.Write([]byte(`{"score":4,"up":5,"down":-1,"our_score":-1}`))
	}, Options{Username: "fox", APIKey: "k"})
	ctx := testContext(t)

	res, err := c.Vote(ctx, 3, -5, true)
	require.NoError(t, err)
	require.Equal(t, "-1", gotScore)
	require.Equal(t, "true", gotNoUnvote)
	require.Equal(t, -1, res.OurScore)

	_, err = c.Vote(ctx, 3, 0, false)
	require.Error(t, err)
}

func TestClient_ClassifiesErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts/404.json":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"reason":"not found"}`))
		case "/posts/503.json":
			w.Header().Set("Server", "cloudflare")
			w.Header().Set("Cf-Ray", "8a1b")
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{not json`))
		}
	}, Options{})
	ctx := testContext(t)

	_, err := c.GetPost(ctx, 404)
	require.ErrorIs(t, err, apierr.ErrNotFound)
	require.Equal(t, "/posts/404.json", err.(*apierr.Error).Path)

	_, err = c.GetPost(ctx, 503)
	require.ErrorIs(t, err, apierr.ErrCloudFlare)

	_, err = c.GetPost(ctx, 1)
	require.Equal(t, apierr.Generic, apierr.KindOf(err))
}

func TestClient_RetriesGetOnceAfterConnectionDrop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"id":5,"name":"fox"}`))
	}, Options{})

	user, err := c.GetUser(testContext(t), "fox")
	require.NoError(t, err)
	require.Equal(t, "fox", user.Name)
	require.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, Options{})

	_, err := c.GetUser(testContext(t), "fox")
	require.ErrorIs(t, err, apierr.ErrServerDown)
	require.Equal(t, int32(1), calls.Load())
}

func TestClient_CachesLookupsUntilWrite(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts/11.json":
			gets.Add(1)
			_, _ = w.Write([]byte(`{"post":{"id":11,"rating":"q"}}`))
		case "/favorites.json":
			_, _ = w.Write([]byte(`{"post":{"id":11,"rating":"q"}}`))
		}
	}, Options{Username: "fox", APIKey: "k", CacheSize: 8})
	ctx := testContext(t)

	for i := 0; i < 3; i++ {
		post, err := c.GetPost(ctx, 11)
		require.NoError(t, err)
		require.Equal(t, "questionable", post.RatingLabel())
	}
	require.Equal(t, int32(1), gets.Load())

	_, err := c.Favorite(ctx, 11)
	require.NoError(t, err)
	_, err = c.GetPost(ctx, 11)
	require.NoError(t, err)
	require.Equal(t, int32(2), gets.Load())
}

func TestClient_PurgeCacheRefetches(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		_, _ = w.Write([]byte(`{"id":3,"title":"fox","body":"b"}`))
	}, Options{CacheSize: 4})
	ctx := testContext(t)

	for i := 0; i < 2; i++ {
		page, err := c.GetWikiPage(ctx, "fox")
		require.NoError(t, err)
		require.Equal(t, "fox", page.Title)
	}
	require.Equal(t, int32(1), gets.Load())

	c.PurgeCache()
	_, err := c.GetWikiPage(ctx, "fox")
	require.NoError(t, err)
	require.Equal(t, int32(2), gets.Load())
}

func TestClient_AutocompleteNeedsThreeCharacters(t *testing.T) {
	t.Parallel()

	var gotPrefix string
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotPrefix = r.URL.Query().Get("search[name_matches]")
		_, _ = w.Write([]byte(`[{"id":1,"name":"wolf","post_count":100,"category":5}]`))
	}, Options{})
	ctx := testContext(t)

	tags, err := c.AutocompleteTags(ctx, "wo")
	require.NoError(t, err)
	require.NotNil(t, tags)
	require.Empty(t, tags)
	require.Zero(t, calls.Load())

	tags, err = c.AutocompleteTags(ctx, "-WOL")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.Equal(t, "wol", gotPrefix)
	require.Equal(t, "species", TagCategoryName(tags[0].Category))
}

func TestClient_PostSetEditsSendEveryID(t *testing.T) {
	t.Parallel()

	var gotIDs []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/post_sets/4/remove_posts.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotIDs = r.PostForm["post_ids[]"]
	}, Options{Username: "fox", APIKey: "k"})

	require.NoError(t, c.RemoveFromPostSet(testContext(t), 4, []int64{1, 2, 3}))
	require.Equal(t, []string{"1", "2", "3"}, gotIDs)
}

func TestClient_UnreadDmailCount(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`[{"id":1,"is_read":false},{"id":2,"is_read":true},{"id":3,"is_read":false,"is_deleted":true}]`))
	}, Options{Username: "fox", APIKey: "k"})

	n, err := c.UnreadDmailCount(testContext(t))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "received", gotQuery.Get("search[folder]"))
	require.Equal(t, "false", gotQuery.Get("search[read]"))
}

func TestClient_WikiTitleIsNormalized(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wiki_pages/red_panda.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1,"title":"red_panda","body":"h1.Red panda"}`))
	}, Options{})

	page, err := c.GetWikiPage(testContext(t), "  Red Panda ")
	require.NoError(t, err)
	require.Equal(t, "red panda", page.DisplayTitle())
}
