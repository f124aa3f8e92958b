package app

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/follow"
	"github.com/five82/snout/internal/schedule"
	"github.com/five82/snout/internal/state"
	"github.com/five82/snout/internal/store"
)

// FollowService runs the followed-tag checker on a schedule and publishes
// each report to the state store.
type FollowService struct {
	Checker  *follow.Checker
	sched    *schedule.CronScheduler
	db       *store.Store
	state    *state.Store
	interval time.Duration
}

// NewFollowService wires a checker for env. extra notifiers run after the
// built-in ones.
func NewFollowService(env *Env, st *state.Store, extra ...follow.Notifier) *FollowService {
	svc := &FollowService{
		sched:    schedule.NewCronScheduler(),
		db:       env.Store,
		state:    st,
		interval: time.Duration(env.Prefs.FollowInterval) * time.Minute,
	}
	notifiers := follow.Notifiers{follow.LogNotifier{Errors: env.Errors()}}
	if st != nil {
		notifiers = append(notifiers, follow.NotifierFunc(svc.publish))
	}
	notifiers = append(notifiers, extra...)
	svc.Checker = follow.NewChecker(env.Client, env.Store, notifiers, follow.Options{
		BatchSize: env.Prefs.FollowBatchSize,
		Blacklist: env.Blacklist,
	})
	return svc
}

// Start schedules the checker and publishes the stored counts right away.
func (s *FollowService) Start(ctx context.Context) error {
	if err := s.sched.AddJob(s.Checker, schedule.EverySpec(s.interval)); err != nil {
		return fmt.Errorf("schedule follow check: %w", err)
	}
	s.sched.Start(ctx)
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if next, ok := s.sched.Next(follow.JobName); ok {
		logutil.GetLogger(ctx).Info("follow checker scheduled",
			zap.Duration("interval", s.interval), zap.Time("next", next))
	}
	return nil
}

// CheckNow triggers a check outside the schedule. It reports false when the
// checker is not scheduled.
func (s *FollowService) CheckNow() bool {
	return s.sched.RunNow(follow.JobName)
}

// Stop waits for a running check to finish.
func (s *FollowService) Stop() {
	s.sched.Stop()
}

// Reload copies the followed tags from the database into the state store.
func (s *FollowService) Reload(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	follows, err := s.db.ListFollows(ctx)
	if err != nil {
		return fmt.Errorf("list followed tags: %w", err)
	}
	s.state.UpdateFollows(follows, time.Time{})
	return nil
}

func (s *FollowService) publish(ctx context.Context, report follow.Report) {
	follows, err := s.db.ListFollows(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("reload followed tags failed", zap.Error(err))
		return
	}
	s.state.UpdateFollows(follows, report.CheckedAt)
}
