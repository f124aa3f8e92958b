package follow

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/errlog"
)

// Notifier receives the report of each checker run.
type Notifier interface {
	Notify(ctx context.Context, report Report)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, report Report)

func (f NotifierFunc) Notify(ctx context.Context, report Report) { f(ctx, report) }

// Notifiers fans a report out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, report Report) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(ctx, report)
		}
	}
}

// LogNotifier writes one log line per updated tag and appends failures to
// the error log.
type LogNotifier struct {
	Errors *errlog.Log
}

func (n LogNotifier) Notify(ctx context.Context, report Report) {
	logger := logutil.GetLogger(ctx)
	for _, u := range report.Updates {
		logger.Info("new posts for followed tag",
			zap.String("tag", u.Tag),
			zap.Int("count", u.NewPosts),
			zap.Int64("newest_id", u.NewestID))
	}
	for _, f := range report.Failures {
		logger.Warn("followed tag check failed", zap.String("tag", f.Tag), zap.Error(f.Err))
		if n.Errors == nil {
			continue
		}
		if err := n.Errors.Record(f.Err); err != nil {
			logger.Error("write error log failed", zap.Error(err))
		}
	}
}
