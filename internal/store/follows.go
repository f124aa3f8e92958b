package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
)

const followTable = "followed_tags"

var followColumns = []string{"tag", "last_seen_id", "new_count", "checked_at", "created_at", "last_error"}

// FollowedTag is a tag query polled for new posts.
type FollowedTag struct {
	Tag        string `db:"tag"`
	LastSeenID int64  `db:"last_seen_id"`
	NewCount   int    `db:"new_count"`
	CheckedAt  int64  `db:"checked_at"`
	CreatedAt  int64  `db:"created_at"`
	LastError  string `db:"last_error"`
}

// Seeded reports whether a check has recorded the newest post id. A first
// check that failed leaves the tag unseeded.
func (f FollowedTag) Seeded() bool {
	return f.LastSeenID > 0 || (f.CheckedAt > 0 && f.LastError == "")
}

// CheckedTime returns CheckedAt as a time, zero when never checked.
func (f FollowedTag) CheckedTime() time.Time {
	if f.CheckedAt == 0 {
		return time.Time{}
	}
	return time.Unix(f.CheckedAt, 0)
}

// FollowCheck is the outcome of one poll of a followed tag.
type FollowCheck struct {
	Tag        string
	LastSeenID int64
	NewPosts   int
	CheckedAt  time.Time
	Err        error
}

// NormalizeTag lowercases a tag query and collapses whitespace.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.Join(strings.Fields(tag), " "))
}

// AddFollow starts following tag. It reports false when tag was already
// followed.
func (s *Store) AddFollow(ctx context.Context, tag string, now time.Time) (bool, error) {
	tag = NormalizeTag(tag)
	if tag == "" {
		return false, fmt.Errorf("tag is empty")
	}
	data := map[string]interface{}{
		"tag":        tag,
		"created_at": now.Unix(),
	}
	sqlStr, args, err := builder.BuildInsert(followTable, []map[string]interface{}{data})
	if err != nil {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if isConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveFollow stops following tag. It reports false when tag was not
// followed.
func (s *Store) RemoveFollow(ctx context.Context, tag string) (bool, error) {
	sqlStr, args, err := builder.BuildDelete(followTable, map[string]interface{}{"tag": NormalizeTag(tag)})
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetFollow returns one followed tag or ErrNotFound.
func (s *Store) GetFollow(ctx context.Context, tag string) (*FollowedTag, error) {
	where := map[string]interface{}{"tag": NormalizeTag(tag), "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect(followTable, where, followColumns)
	if err != nil {
		return nil, err
	}
	var out FollowedTag
	if err := s.db.GetContext(ctx, &out, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ListFollows returns every followed tag ordered by name.
func (s *Store) ListFollows(ctx context.Context) ([]FollowedTag, error) {
	where := map[string]interface{}{"_orderby": "tag asc"}
	sqlStr, args, err := builder.BuildSelect(followTable, where, followColumns)
	if err != nil {
		return nil, err
	}
	out := make([]FollowedTag, 0)
	if err := s.db.SelectContext(ctx, &out, sqlStr, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordFollowCheck stores the outcome of a poll. New posts accumulate into
// new_count until ClearFollowCounts is called. A failed check only records
// the error and the time.
func (s *Store) RecordFollowCheck(ctx context.Context, check FollowCheck) error {
	tag := NormalizeTag(check.Tag)
	if check.Err != nil {
		where := map[string]interface{}{"tag": tag}
		update := map[string]interface{}{
			"checked_at": check.CheckedAt.Unix(),
			"last_error": check.Err.Error(),
		}
		sqlStr, args, err := builder.BuildUpdate(followTable, where, update)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, sqlStr, args...)
		return err
	}
	const query = `UPDATE followed_tags
		SET last_seen_id = MAX(last_seen_id, ?),
			new_count = new_count + ?,
			checked_at = ?,
			last_error = ''
		WHERE tag = ?`
	_, err := s.db.ExecContext(ctx, query, check.LastSeenID, check.NewPosts, check.CheckedAt.Unix(), tag)
	return err
}

// ClearFollowCounts resets new_count for tag, or for every tag when tag is
// empty.
func (s *Store) ClearFollowCounts(ctx context.Context, tag string) error {
	where := map[string]interface{}{"new_count >": 0}
	if tag = NormalizeTag(tag); tag != "" {
		where["tag"] = tag
	}
	sqlStr, args, err := builder.BuildUpdate(followTable, where, map[string]interface{}{"new_count": 0})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// TotalNewPosts sums new_count across followed tags.
func (s *Store) TotalNewPosts(ctx context.Context) (int, error) {
	var total sql.NullInt64
	if err := s.db.GetContext(ctx, &total, `SELECT SUM(new_count) FROM followed_tags`); err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
