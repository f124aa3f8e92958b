package suggest

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/five82/snout/internal/apierr"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/store"
)

type fakeHistory struct {
	entries []store.HistoryEntry
	err     error
	prefix  string
}

func (f *fakeHistory) SearchHistory(_ context.Context, prefix string, _ int) ([]store.HistoryEntry, error) {
	f.prefix = prefix
	return f.entries, f.err
}

type fakeTags struct {
	tags   []e621.TagAutocomplete
	err    error
	prefix string
	calls  int
}

func (f *fakeTags) AutocompleteTags(_ context.Context, prefix string) ([]e621.TagAutocomplete, error) {
	f.calls++
	f.prefix = prefix
	return f.tags, f.err
}

func TestSuggest_HistoryFirstAndDeduplicated(t *testing.T) {
	history := &fakeHistory{entries: []store.HistoryEntry{
		{Query: "wolf", UsedCount: 1},
		{Query: "wolf rating:s", UsedCount: 4},
	}}
	tags := &fakeTags{tags: []e621.TagAutocomplete{
		{Name: "wolf", PostCount: 1000, Category: e621.TagCategorySpecies},
		{Name: "wolf_o'donnell", PostCount: 50, Category: e621.TagCategoryCharacter},
	}}
	s := New(history, tags)

	got, err := s.Suggest(context.Background(), "  wolf")
	require.NoError(t, err)
	require.Equal(t, "wolf", history.prefix)
	require.Equal(t, "wolf", tags.prefix)
	require.Equal(t, []Suggestion{
		{Name: "wolf rating:s", PostCount: 4, Source: SourceHistory},
		{Name: "wolf", PostCount: 1000, Category: "species", Source: SourceTag},
		{Name: "wolf_o'donnell", PostCount: 50, Category: "character", Source: SourceTag},
	}, got)
}

func TestSuggest_CapsResults(t *testing.T) {
	history := &fakeHistory{}
	for i := 0; i < 15; i++ {
		history.entries = append(history.entries, store.HistoryEntry{Query: fmt.Sprintf("fox %d", i)})
	}
	tags := &fakeTags{}
	for i := 0; i < 15; i++ {
		tags.tags = append(tags.tags, e621.TagAutocomplete{Name: fmt.Sprintf("fox_%d", i)})
	}
	got, err := New(history, tags).Suggest(context.Background(), "fox")
	require.NoError(t, err)
	require.Len(t, got, MaxSuggestions)
	require.Equal(t, SourceHistory, got[14].Source)
	require.Equal(t, SourceTag, got[15].Source)
}

func TestSuggest_PartialFailure(t *testing.T) {
	history := &fakeHistory{entries: []store.HistoryEntry{{Query: "cat ears"}}}
	tags := &fakeTags{err: apierr.New(apierr.ServerDown, "/tags/autocomplete.json", "")}
	got, err := New(history, tags).Suggest(context.Background(), "cat")
	require.NoError(t, err)
	require.Len(t, got, 1)

	history.err = errors.New("db closed")
	history.entries = nil
	_, err = New(history, tags).Suggest(context.Background(), "cat")
	require.Error(t, err)
}

func TestSuggest_TrailingSpaceSkipsTags(t *testing.T) {
	tags := &fakeTags{}
	got, err := New(nil, tags).Suggest(context.Background(), "fox ")
	require.NoError(t, err)
	require.Empty(t, got)
	require.NotNil(t, got)
	require.Zero(t, tags.calls)
}

func TestLastTerm(t *testing.T) {
	require.Equal(t, "", LastTerm(""))
	require.Equal(t, "", LastTerm("fox "))
	require.Equal(t, "-wo", LastTerm("fox -wo"))
}

func TestComplete(t *testing.T) {
	tag := Suggestion{Name: "wolf", Source: SourceTag}
	require.Equal(t, "fox wolf ", Complete("fox wo", tag))
	require.Equal(t, "fox -wolf ", Complete("fox -wo", tag))
	require.Equal(t, "fox wolf ", Complete("fox ", tag))
	require.Equal(t, "wolf ", Complete("", tag))
	require.Equal(t, "cat ears ", Complete("ca", Suggestion{Name: "cat ears", Source: SourceHistory}))
}

func newTestRouter(history HistorySource, tags TagSource) http.Handler {
	gin.SetMode(gin.TestMode)
	return NewRouter(New(history, tags))
}

func TestHandler_ReturnsJSON(t *testing.T) {
	router := newTestRouter(&fakeHistory{entries: []store.HistoryEntry{{Query: "fox rating:s", UsedCount: 2}}}, &fakeTags{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggest?q=fox", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "fox", resp.Query)
	require.Equal(t, []Suggestion{{Name: "fox rating:s", PostCount: 2, Source: SourceHistory}}, resp.Suggestions)
}

func TestHandler_Gzip(t *testing.T) {
	router := newTestRouter(&fakeHistory{entries: []store.HistoryEntry{{Query: "fox rating:s"}}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/suggest?q=fox", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.NewDecoder(zr).Decode(&resp))
	require.Len(t, resp.Suggestions, 1)
}

func TestHandler_SourceFailure(t *testing.T) {
	router := newTestRouter(nil, &fakeTags{err: apierr.New(apierr.RateLimited, "/tags/autocomplete.json", "")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggest?q=fox", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, apierr.RateLimited.String(), body.Kind)
	require.NotEmpty(t, body.Error)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", New(nil, nil)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
