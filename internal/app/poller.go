package app

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/state"
)

const (
	defaultPollInterval = 5 * time.Minute
	maxBackoff          = 30 * time.Minute
)

// AccountSource is what the poller reads each cycle.
type AccountSource interface {
	HasCredentials() bool
	CurrentUser(ctx context.Context) (*e621.User, error)
	UnreadDmailCount(ctx context.Context) (int, error)
}

// ErrorRecorder receives failed polls.
type ErrorRecorder interface {
	Record(err error) error
}

// StartPoller launches a background goroutine that refreshes the account
// snapshot. Consecutive failures back off exponentially. It returns
// immediately.
func StartPoller(ctx context.Context, store *state.Store, src AccountSource, interval time.Duration, errs ErrorRecorder) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		for {
			refresh(ctx, store, src, errs)
			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// calculateBackoff doubles base per consecutive failure, capped at
// maxBackoff but never below base.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures && d < maxBackoff; i++ {
		d *= 2
	}
	return max(base, min(d, maxBackoff))
}

func refresh(ctx context.Context, store *state.Store, src AccountSource, errs ErrorRecorder) {
	if !src.HasCredentials() {
		store.Update(nil, 0, nil)
		return
	}
	user, err := src.CurrentUser(ctx)
	if err != nil {
		fail(ctx, store, errs, "account poll failed", err)
		return
	}
	unread, err := src.UnreadDmailCount(ctx)
	if err != nil {
		fail(ctx, store, errs, "dmail poll failed", err)
		return
	}
	store.Update(user, unread, nil)
}

func fail(ctx context.Context, store *state.Store, errs ErrorRecorder, msg string, err error) {
	if ctx.Err() != nil {
		return
	}
	store.Update(nil, 0, err)
	logutil.GetLogger(ctx).Warn(msg, zap.Error(err))
	if errs == nil {
		return
	}
	if werr := errs.Record(err); werr != nil {
		logutil.GetLogger(ctx).Error("write error log failed", zap.Error(werr))
	}
}
