package follow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/blacklist"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/schedule"
	"github.com/five82/snout/internal/store"
)

const (
	// JobName identifies the checker in the scheduler.
	JobName          = "follow-check"
	defaultBatchSize = 4
)

// PostSearcher is the part of the API client the checker needs.
type PostSearcher interface {
	SearchPosts(ctx context.Context, query e621.PostQuery) ([]e621.Post, error)
}

// Store persists followed tags and check results.
type Store interface {
	ListFollows(ctx context.Context) ([]store.FollowedTag, error)
	RecordFollowCheck(ctx context.Context, check store.FollowCheck) error
}

// Update describes new posts found for one tag.
type Update struct {
	Tag      string
	NewPosts int
	NewestID int64
}

// Failure is a tag whose check failed.
type Failure struct {
	Tag string
	Err error
}

// Report summarizes one run of the checker.
type Report struct {
	CheckedAt time.Time
	Checked   int
	Seeded    []string
	Updates   []Update
	Failures  []Failure
}

// TotalNew sums new posts across updates.
func (r Report) TotalNew() int {
	total := 0
	for _, u := range r.Updates {
		total += u.NewPosts
	}
	return total
}

// Options tunes a Checker.
type Options struct {
	// BatchSize is how many tags are checked concurrently.
	BatchSize int
	// Limit caps the posts fetched per tag, at most e621.MaxLimit.
	Limit     int
	Blacklist *blacklist.Blacklist
	Now       func() time.Time
}

// Checker polls every followed tag.
type Checker struct {
	posts    PostSearcher
	store    Store
	notifier Notifier
	opts     Options

	mu   sync.Mutex
	last Report
}

var _ schedule.Job = (*Checker)(nil)

// NewChecker builds a Checker. notifier may be nil.
func NewChecker(posts PostSearcher, st Store, notifier Notifier, opts Options) *Checker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Limit <= 0 || opts.Limit > e621.MaxLimit {
		opts.Limit = e621.MaxLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Checker{posts: posts, store: st, notifier: notifier, opts: opts}
}

func (c *Checker) Name() string { return JobName }

// SetBlacklist swaps the blacklist used for later runs.
func (c *Checker) SetBlacklist(b *blacklist.Blacklist) {
	c.mu.Lock()
	c.opts.Blacklist = b
	c.mu.Unlock()
}

// LastReport returns the report of the most recent run.
func (c *Checker) LastReport() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Run checks every tag. It fails only when every tag failed or ctx ended.
func (c *Checker) Run(ctx context.Context) error {
	report, err := c.Check(ctx)
	if err != nil {
		return err
	}
	if report.Checked > 0 && len(report.Failures) == report.Checked {
		errs := make([]error, 0, len(report.Failures))
		for _, f := range report.Failures {
			errs = append(errs, fmt.Errorf("%s: %w", f.Tag, f.Err))
		}
		return errors.Join(errs...)
	}
	return nil
}

// Check runs one pass over the followed tags and returns its report.
func (c *Checker) Check(ctx context.Context) (Report, error) {
	follows, err := c.store.ListFollows(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list followed tags: %w", err)
	}
	c.mu.Lock()
	opts := c.opts
	c.mu.Unlock()

	report := Report{CheckedAt: opts.Now(), Checked: len(follows)}
	results := make([]result, len(follows))
	for start := 0; start < len(follows); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		end := min(start+opts.BatchSize, len(follows))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = c.checkOne(ctx, follows[i], opts)
			}(i)
		}
		wg.Wait()
	}

	for i, res := range results {
		tag := follows[i].Tag
		check := store.FollowCheck{
			Tag:        tag,
			LastSeenID: res.newestID,
			NewPosts:   res.newPosts,
			CheckedAt:  report.CheckedAt,
			Err:        res.err,
		}
		if err := c.store.RecordFollowCheck(ctx, check); err != nil {
			return Report{}, fmt.Errorf("record check for %q: %w", tag, err)
		}
		switch {
		case res.err != nil:
			report.Failures = append(report.Failures, Failure{Tag: tag, Err: res.err})
		case res.seeded:
			report.Seeded = append(report.Seeded, tag)
		case res.newPosts > 0:
			report.Updates = append(report.Updates, Update{Tag: tag, NewPosts: res.newPosts, NewestID: res.newestID})
		}
	}

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()

	logutil.GetLogger(ctx).Info("followed tags checked",
		zap.Int("tags", report.Checked),
		zap.Int("updated", len(report.Updates)),
		zap.Int("new_posts", report.TotalNew()),
		zap.Int("failed", len(report.Failures)))
	if c.notifier != nil {
		c.notifier.Notify(ctx, report)
	}
	return report, nil
}

type result struct {
	seeded   bool
	newPosts int
	newestID int64
	err      error
}

func (c *Checker) checkOne(ctx context.Context, follow store.FollowedTag, opts Options) result {
	if !follow.Seeded() {
		posts, err := c.posts.SearchPosts(ctx, e621.PostQuery{Tags: follow.Tag, Limit: 1})
		if err != nil {
			return result{err: err}
		}
		return result{seeded: true, newestID: newestID(posts, follow.LastSeenID)}
	}

	query := follow.Tag + " id:>" + strconv.FormatInt(follow.LastSeenID, 10)
	posts, err := c.posts.SearchPosts(ctx, e621.PostQuery{Tags: query, Limit: opts.Limit})
	if err != nil {
		return result{err: err}
	}
	visible, _ := opts.Blacklist.Filter(posts)
	count := 0
	for _, p := range visible {
		if p.ID > follow.LastSeenID {
			count++
		}
	}
	return result{newPosts: count, newestID: newestID(posts, follow.LastSeenID)}
}

func newestID(posts []e621.Post, floor int64) int64 {
	newest := floor
	for _, p := range posts {
		if p.ID > newest {
			newest = p.ID
		}
	}
	return newest
}
