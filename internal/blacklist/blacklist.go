// Package blacklist hides posts matching the user's blacklist.
//
// Each line is a group of space-separated terms and matches a post when every
// term matches; a post is hidden when any line matches. Posts the user has
// favorited are never hidden.
package blacklist

import (
	"strconv"
	"strings"

	"github.com/five82/snout/internal/e621"
)

type termKind int

const (
	kindTag termKind = iota
	kindRating
	kindScore
	kindID
	kindType
)

type term struct {
	kind   termKind
	negate bool
	value  string
	// prefix is set for tags ending in "*".
	prefix bool
	op     string
	num    int64
}

// Blacklist is a parsed set of blacklist lines.
type Blacklist struct {
	lines [][]term
	raw   []string
}

// Parse reads one rule per line. Blank lines and lines starting with "#" are
// skipped. A line with any term that cannot be evaluated locally is dropped
// whole.
func Parse(text string) *Blacklist {
	b := &Blacklist{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if terms, ok := parseLine(line); ok {
			b.lines = append(b.lines, terms)
			b.raw = append(b.raw, line)
		}
	}
	return b
}

func parseLine(line string) ([]term, bool) {
	fields := strings.Fields(strings.ToLower(line))
	terms := make([]term, 0, len(fields))
	for _, field := range fields {
		t, ok := parseTerm(field)
		if !ok {
			return nil, false
		}
		terms = append(terms, t)
	}
	return terms, len(terms) > 0
}

func parseTerm(field string) (term, bool) {
	t := term{}
	if strings.HasPrefix(field, "-") && len(field) > 1 {
		t.negate = true
		field = field[1:]
	}
	key, value, hasKey := strings.Cut(field, ":")
	if hasKey && value != "" {
		switch key {
		case "rating":
			t.kind = kindRating
			t.value = value[:1]
			return t, true
		case "score":
			op, num, ok := parseComparison(value)
			if !ok {
				return term{}, false
			}
			t.kind, t.op, t.num = kindScore, op, num
			return t, true
		case "id":
			op, num, ok := parseComparison(value)
			if !ok {
				return term{}, false
			}
			t.kind, t.op, t.num = kindID, op, num
			return t, true
		case "type":
			t.kind = kindType
			t.value = strings.TrimPrefix(value, ".")
			return t, true
		case "user", "fav", "favoritedby", "uploader", "approver":
			return term{}, false
		}
	}
	t.kind = kindTag
	if strings.HasSuffix(field, "*") {
		t.prefix = true
		field = strings.TrimSuffix(field, "*")
	}
	t.value = field
	return t, true
}

func parseComparison(value string) (string, int64, bool) {
	op := "="
	for _, candidate := range []string{"<=", ">=", "<", ">", "="} {
		if strings.HasPrefix(value, candidate) {
			op = candidate
			value = value[len(candidate):]
			break
		}
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return op, num, true
}

// Len returns the number of active lines.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.lines)
}

// Lines returns the active lines as written.
func (b *Blacklist) Lines() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.raw...)
}

// Matches reports whether post should be hidden.
func (b *Blacklist) Matches(post e621.Post) bool {
	if b == nil || len(b.lines) == 0 || post.IsFavorited {
		return false
	}
	tags := make(map[string]struct{})
	for _, tag := range post.Tags.All() {
		tags[strings.ToLower(tag)] = struct{}{}
	}
	for _, line := range b.lines {
		if lineMatches(line, post, tags) {
			return true
		}
	}
	return false
}

// Filter splits posts into the visible ones and a count of hidden ones.
func (b *Blacklist) Filter(posts []e621.Post) ([]e621.Post, int) {
	out := make([]e621.Post, 0, len(posts))
	hidden := 0
	for _, p := range posts {
		if b.Matches(p) {
			hidden++
			continue
		}
		out = append(out, p)
	}
	return out, hidden
}

func lineMatches(line []term, post e621.Post, tags map[string]struct{}) bool {
	for _, t := range line {
		if t.matches(post, tags) == t.negate {
			return false
		}
	}
	return true
}

func (t term) matches(post e621.Post, tags map[string]struct{}) bool {
	switch t.kind {
	case kindRating:
		return strings.EqualFold(post.Rating, t.value)
	case kindScore:
		return compare(int64(post.Score.Total), t.op, t.num)
	case kindID:
		return compare(post.ID, t.op, t.num)
	case kindType:
		return strings.EqualFold(post.File.Ext, t.value)
	}
	if !t.prefix {
		_, ok := tags[t.value]
		return ok
	}
	for tag := range tags {
		if strings.HasPrefix(tag, t.value) {
			return true
		}
	}
	return false
}

func compare(have int64, op string, want int64) bool {
	switch op {
	case "<":
		return have < want
	case "<=":
		return have <= want
	case ">":
		return have > want
	case ">=":
		return have >= want
	}
	return have == want
}
