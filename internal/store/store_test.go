package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTestStore(t)
	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, version)

	require.NoError(t, s.RollbackLast())
	version, err = s.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestOpen_CreatesFileAndDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snout.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestFollows_AddListRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	added, err := s.AddFollow(ctx, "  Wolf   Rating:S ", now)
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.AddFollow(ctx, "wolf rating:s", now)
	require.NoError(t, err)
	require.False(t, added)

	_, err = s.AddFollow(ctx, "   ", now)
	require.Error(t, err)

	_, err = s.AddFollow(ctx, "fox", now)
	require.NoError(t, err)

	list, err := s.ListFollows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "fox", list[0].Tag)
	require.Equal(t, "wolf rating:s", list[1].Tag)
	require.False(t, list[1].Seeded())
	require.Equal(t, now.Unix(), list[1].CreatedAt)

	removed, err := s.RemoveFollow(ctx, "FOX")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = s.RemoveFollow(ctx, "fox")
	require.NoError(t, err)
	require.False(t, removed)

	_, err = s.GetFollow(ctx, "fox")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestFollows_RecordCheckAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	_, err := s.AddFollow(ctx, "fox", now)
	require.NoError(t, err)

	require.NoError(t, s.RecordFollowCheck(ctx, FollowCheck{Tag: "fox", LastSeenID: 100, CheckedAt: now}))
	require.NoError(t, s.RecordFollowCheck(ctx, FollowCheck{Tag: "fox", LastSeenID: 120, NewPosts: 3, CheckedAt: now.Add(time.Hour)}))
	require.NoError(t, s.RecordFollowCheck(ctx, FollowCheck{Tag: "fox", LastSeenID: 90, NewPosts: 2, CheckedAt: now.Add(2 * time.Hour)}))

	f, err := s.GetFollow(ctx, "fox")
	require.NoError(t, err)
	require.Equal(t, int64(120), f.LastSeenID)
	require.Equal(t, 5, f.NewCount)
	require.True(t, f.Seeded())
	require.Equal(t, now.Add(2*time.Hour), f.CheckedTime())

	require.NoError(t, s.RecordFollowCheck(ctx, FollowCheck{Tag: "fox", CheckedAt: now.Add(3 * time.Hour), Err: errors.New("timed out")}))
	f, err = s.GetFollow(ctx, "fox")
	require.NoError(t, err)
	require.Equal(t, "timed out", f.LastError)
	require.Equal(t, int64(120), f.LastSeenID)

	total, err := s.TotalNewPosts(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, total)

	require.NoError(t, s.ClearFollowCounts(ctx, ""))
	total, err = s.TotalNewPosts(ctx)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestFollows_ClearSingleTag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	for _, tag := range []string{"a", "b"} {
		_, err := s.AddFollow(ctx, tag, now)
		require.NoError(t, err)
		require.NoError(t, s.RecordFollowCheck(ctx, FollowCheck{Tag: tag, LastSeenID: 1, NewPosts: 2, CheckedAt: now}))
	}
	require.NoError(t, s.ClearFollowCounts(ctx, "a"))

	total, err := s.TotalNewPosts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestHistory_RecordSearchAndPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.RecordSearch(ctx, "wolf", base))
	require.NoError(t, s.RecordSearch(ctx, "wolf_girl", base.Add(time.Second)))
	require.NoError(t, s.RecordSearch(ctx, "  wolf  ", base.Add(2*time.Second)))
	require.NoError(t, s.RecordSearch(ctx, "fox", base.Add(3*time.Second)))
	require.NoError(t, s.RecordSearch(ctx, " ", base))

	all, err := s.SearchHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "fox", all[0].Query)

	matches, err := s.SearchHistory(ctx, "wolf", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "wolf", matches[0].Query)
	require.Equal(t, 2, matches[0].UsedCount)

	underscore, err := s.SearchHistory(ctx, "wolf_", 10)
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	require.Equal(t, "wolf_girl", underscore[0].Query)

	require.NoError(t, s.PruneHistory(ctx, 2))
	all, err = s.SearchHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, []string{"fox", "wolf"}, []string{all[0].Query, all[1].Query})

	require.NoError(t, s.ClearHistory(ctx))
	all, err = s.SearchHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Empty(t, all)
}
