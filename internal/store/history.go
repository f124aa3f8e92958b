package store

import (
	"context"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
)

const historyTable = "search_history"

// HistoryEntry is one remembered search query.
type HistoryEntry struct {
	Query      string `db:"query"`
	UsedCount  int    `db:"used_count"`
	LastUsedAt int64  `db:"last_used_at"`
}

// RecordSearch remembers query, bumping its use count if already known.
func (s *Store) RecordSearch(ctx context.Context, query string, now time.Time) error {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil
	}
	const stmt = `INSERT INTO search_history (query, used_count, last_used_at)
		VALUES (?, 1, ?)
		ON CONFLICT (query) DO UPDATE SET
			used_count = used_count + 1,
			last_used_at = excluded.last_used_at`
	_, err := s.db.ExecContext(ctx, stmt, query, now.Unix())
	return err
}

// SearchHistory returns remembered queries starting with prefix, most used
// first. An empty prefix lists the most recent queries.
func (s *Store) SearchHistory(ctx context.Context, prefix string, limit int) ([]HistoryEntry, error) {
	where := map[string]interface{}{"_orderby": "last_used_at desc"}
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		where["_custom_prefix"] = builder.Custom(`query LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
		where["_orderby"] = "used_count desc, last_used_at desc"
	}
	if limit > 0 {
		where["_limit"] = []uint{0, uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect(historyTable, where, []string{"query", "used_count", "last_used_at"})
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0)
	if err := s.db.SelectContext(ctx, &out, sqlStr, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// PruneHistory keeps only the keep most recently used queries.
func (s *Store) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	const stmt = `DELETE FROM search_history WHERE query NOT IN (
		SELECT query FROM search_history ORDER BY last_used_at DESC LIMIT ?)`
	_, err := s.db.ExecContext(ctx, stmt, keep)
	return err
}

// ClearHistory forgets every query.
func (s *Store) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
