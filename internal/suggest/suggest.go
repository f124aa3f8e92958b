// Package suggest merges search history with tag autocomplete to complete
// search queries, for the TUI search box and a local HTTP endpoint.
package suggest

import (
	"context"
	"errors"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/store"
)

// MaxSuggestions caps every response.
const MaxSuggestions = 20

// Sources of a suggestion.
const (
	SourceHistory = "history"
	SourceTag     = "tag"
)

// HistorySource looks up remembered queries.
type HistorySource interface {
	SearchHistory(ctx context.Context, prefix string, limit int) ([]store.HistoryEntry, error)
}

// TagSource looks up tags by prefix.
type TagSource interface {
	AutocompleteTags(ctx context.Context, prefix string) ([]e621.TagAutocomplete, error)
}

// Suggestion is one completion candidate. For history entries Name is the
// whole remembered query; for tags it is the tag that completes the last
// term.
type Suggestion struct {
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
	Category  string `json:"category"`
	Source    string `json:"source"`
}

// Suggester produces suggestions. Either source may be nil.
type Suggester struct {
	history HistorySource
	tags    TagSource
}

// New builds a Suggester.
func New(history HistorySource, tags TagSource) *Suggester {
	return &Suggester{history: history, tags: tags}
}

// Suggest returns history matches first, then tags completing the last term,
// without duplicates. A query ending in a space has no term to complete.
// It fails only when every consulted source failed.
func (s *Suggester) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	term := LastTerm(query)
	query = strings.Join(strings.Fields(query), " ")
	out := make([]Suggestion, 0)
	seen := map[string]bool{}
	add := func(sg Suggestion) {
		key := strings.ToLower(sg.Name)
		if len(out) >= MaxSuggestions || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, sg)
	}

	var errs []error
	consulted := 0
	if s.history != nil {
		consulted++
		entries, err := s.history.SearchHistory(ctx, query, MaxSuggestions)
		if err != nil {
			errs = append(errs, err)
		}
		for _, e := range entries {
			if e.Query == query {
				continue
			}
			add(Suggestion{Name: e.Query, PostCount: e.UsedCount, Source: SourceHistory})
		}
	}

	if s.tags != nil && term != "" {
		consulted++
		tags, err := s.tags.AutocompleteTags(ctx, term)
		if err != nil {
			errs = append(errs, err)
		}
		for _, t := range tags {
			add(Suggestion{
				Name:      t.Name,
				PostCount: t.PostCount,
				Category:  e621.TagCategoryName(t.Category),
				Source:    SourceTag,
			})
		}
	}

	if len(errs) > 0 {
		if len(errs) == consulted {
			return nil, errors.Join(errs...)
		}
		logutil.GetLogger(ctx).Debug("suggestion source failed", zap.Error(errors.Join(errs...)))
	}
	return out, nil
}

// LastTerm returns the term being typed, the text after the last space.
func LastTerm(query string) string {
	if strings.HasSuffix(query, " ") {
		return ""
	}
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Complete applies a suggestion to query. History suggestions replace the
// whole query; tag suggestions replace the last term, keeping a leading - or
// ~ operator, and append a space for the next term.
func Complete(query string, sg Suggestion) string {
	if sg.Source == SourceHistory {
		return sg.Name + " "
	}
	fields := strings.Fields(query)
	if len(fields) == 0 || strings.HasSuffix(query, " ") {
		return strings.Join(append(fields, sg.Name), " ") + " "
	}
	last := fields[len(fields)-1]
	op := ""
	if strings.HasPrefix(last, "-") || strings.HasPrefix(last, "~") {
		op = last[:1]
	}
	fields[len(fields)-1] = op + sg.Name
	return strings.Join(fields, " ") + " "
}
