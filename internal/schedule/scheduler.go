package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// MinInterval is the shortest polling interval EverySpec will produce.
const MinInterval = time.Minute

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	RunNow(name string) bool
	Start(ctx context.Context)
	Stop()
}

var _ Scheduler = (*CronScheduler)(nil)

type CronScheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	runners map[string]func()
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		runners: make(map[string]func()),
	}
}

// EverySpec returns an "@every" spec for interval, clamped to MinInterval.
func EverySpec(interval time.Duration) string {
	if interval < MinInterval {
		interval = MinInterval
	}
	return fmt.Sprintf("@every %s", interval.Round(time.Second))
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	run := c.wrap(job, spec)
	entryID, err := c.cron.AddFunc(spec, run)
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.mu.Lock()
	if old, ok := c.entries[name]; ok {
		c.cron.Remove(old)
	}
	c.entries[name] = entryID
	c.runners[name] = run
	c.mu.Unlock()
	logger.Info("job scheduled")
	return nil
}

// RunNow triggers the named job outside its schedule on a new goroutine.
// The still-running guard applies, so a run already in flight is not
// doubled. It reports false for unknown jobs.
func (c *CronScheduler) RunNow(name string) bool {
	c.mu.Lock()
	run, ok := c.runners[name]
	c.mu.Unlock()
	if !ok {
		return false
	}
	go run()
	return true
}

// Next returns the next scheduled run of the named job.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := c.cron.Entry(id)
	return entry.Next, entry.Valid()
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(context.Background()).With(
				zap.String("job", job.Name()),
				zap.String("spec", spec),
			).Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		ctx := c.context()
		if ctx.Err() != nil {
			return
		}
		logger := logutil.GetLogger(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}
