package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/blacklist"
	"github.com/five82/snout/internal/config"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/errlog"
	"github.com/five82/snout/internal/prefs"
	"github.com/five82/snout/internal/store"
	"github.com/five82/snout/internal/vault"
)

// Version is embedded in the User-Agent and printed by the CLI.
var Version = "0.1.0"

// Options configure the snout environment.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses the config's prefs_path
	// Host overrides the prefs host when set.
	Host string
	// SafeMode forces e926 in addition to the prefs setting.
	SafeMode bool
	// Passphrase unlocks sealed credentials when they exist.
	Passphrase string
	// LogConsole also logs to stderr. The TUI leaves it off.
	LogConsole bool
}

// Env holds everything a command or the TUI needs.
type Env struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Client    *e621.Client
	Store     *store.Store
	ErrorLog  *errlog.Log
	Blacklist *blacklist.Blacklist
	// Sealed reports credentials came from the vault.
	Sealed bool
}

// Open loads config and prefs, starts logging, opens the database, and
// builds the API client.
func Open(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogConsole {
		cfg.Log.Console = true
	}
	if err := InitLogging(cfg.Log); err != nil {
		return nil, err
	}

	prefsPath := opts.PrefsPath
	if strings.TrimSpace(prefsPath) == "" {
		prefsPath = cfg.PrefsPath
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}
	if cfg.DownloadDir != "" {
		userPrefs.DownloadDir = cfg.DownloadDir
	}

	env := &Env{
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		ErrorLog:  errlog.New(cfg.ErrorLogPath),
		Blacklist: blacklist.Parse(strings.Join(userPrefs.Blacklist, "\n")),
	}

	creds := vault.Credentials{Username: userPrefs.Username, APIKey: userPrefs.APIKey}
	if opts.Passphrase != "" && vault.Exists(cfg.CredentialsPath) {
		sealed, err := vault.Load(cfg.CredentialsPath, opts.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlock credentials: %w", err)
		}
		creds = sealed
		env.Sealed = true
	}

	host := userPrefs.Host
	if strings.TrimSpace(opts.Host) != "" {
		host = opts.Host
	}
	env.Client, err = e621.NewClient(e621.Options{
		Host:      host,
		SafeMode:  opts.SafeMode || userPrefs.SafeMode,
		Username:  creds.Username,
		APIKey:    creds.APIKey,
		Version:   Version,
		Timeout:   time.Duration(userPrefs.RequestTimeoutSeconds) * time.Second,
		PerPage:   userPrefs.PostsPerPage,
		CacheSize: userPrefs.CacheSize,
		CacheTTL:  time.Duration(userPrefs.CacheTTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init e621 client: %w", err)
	}

	env.Store, err = store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	logutil.GetLogger(ctx).Info("snout environment ready",
		zap.String("host", env.Client.Host()),
		zap.String("user", env.Client.Username()),
		zap.Bool("sealed_credentials", env.Sealed),
		zap.String("db", cfg.DBPath))
	return env, nil
}

// InitLogging points the global zap logger at the configured file.
func InitLogging(cfg config.LogConfig) error {
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	logger.Init(cfg.File, cfg.Level, cfg.FileCount, cfg.FileSize, cfg.KeepDays, cfg.Console)
	return nil
}

// Close releases the database.
func (e *Env) Close() error {
	if e == nil {
		return nil
	}
	return e.Store.Close()
}

// SavePrefs writes the current prefs and refreshes derived state.
func (e *Env) SavePrefs() error {
	e.Blacklist = blacklist.Parse(strings.Join(e.Prefs.Blacklist, "\n"))
	return prefs.Save(e.PrefsPath, e.Prefs)
}

// Errors returns the log failures are recorded to, or nil when the user
// turned error logging off.
func (e *Env) Errors() *errlog.Log {
	if !e.Prefs.ErrorLogEnabled {
		return nil
	}
	return e.ErrorLog
}

// RecordError appends err to the error log when logging is enabled.
// Cancellations are not failures and are skipped.
func (e *Env) RecordError(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if werr := e.Errors().Record(err); werr != nil {
		logutil.GetLogger(ctx).Error("write error log failed", zap.Error(werr))
	}
}

// DownloadDir returns the expanded download directory.
func (e *Env) DownloadDir() string {
	return config.ExpandPath(e.Prefs.DownloadDir)
}
