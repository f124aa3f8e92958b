package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/state"
	"github.com/five82/snout/internal/suggest"
	"github.com/five82/snout/internal/ui"
)

// Run boots the TUI until the user quits or the context is cancelled.
// query is searched on start; empty uses the default_tags preference.
func Run(ctx context.Context, opts Options, query string) error {
	env, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			logutil.GetLogger(ctx).Warn("close database failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &state.Store{}
	StartPoller(ctx, st, env.Client, defaultPollInterval, env.Errors())

	svc := NewFollowService(env, st)
	var trigger ui.FollowTrigger
	if env.Prefs.FollowEnabled {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop()
		trigger = svc
	} else if err := svc.Reload(ctx); err != nil {
		return err
	}

	err = ui.Run(ui.Options{
		Context:     ctx,
		Client:      env.Client,
		State:       st,
		DB:          env.Store,
		Errors:      env.Errors(),
		Suggester:   suggest.New(env.Store, env.Client),
		Follow:      trigger,
		Prefs:       env.Prefs,
		PrefsPath:   env.PrefsPath,
		Blacklist:   env.Blacklist,
		DownloadDir: env.DownloadDir(),
		RecordError: env.RecordError,
		PollTick:    time.Second,
		Timeout:     time.Duration(env.Prefs.RequestTimeoutSeconds) * time.Second,
		Query:       query,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
