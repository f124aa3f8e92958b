package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds where snout keeps its files and how it logs.
type Config struct {
	DataDir         string
	DBPath          string
	ErrorLogPath    string
	PrefsPath       string
	CredentialsPath string
	DownloadDir     string
	SuggestAddr     string
	Log             LogConfig
}

// LogConfig mirrors the arguments of the logger's Init.
type LogConfig struct {
	File      string
	Level     string
	FileCount int
	FileSize  int
	KeepDays  int
	Console   bool
}

const (
	defaultConfigPath  = "~/.config/snout/config.toml"
	defaultConfigDir   = "~/.config/snout"
	defaultDataDir     = "~/.local/share/snout"
	defaultSuggestAddr = "127.0.0.1:7621"
	defaultLogLevel    = "info"
	defaultLogFiles    = 3
	defaultLogFileMB   = 10
	defaultLogKeepDays = 7
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the snout config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fill(rawConfig{}), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return fill(raw), nil
}

type rawConfig struct {
	DataDir         string `toml:"data_dir"`
	DBPath          string `toml:"db_path"`
	ErrorLogPath    string `toml:"error_log_path"`
	PrefsPath       string `toml:"prefs_path"`
	CredentialsPath string `toml:"credentials_path"`
	DownloadDir     string `toml:"download_dir"`
	SuggestAddr     string `toml:"suggest_addr"`
	Log             struct {
		File      string `toml:"file"`
		Level     string `toml:"level"`
		FileCount int    `toml:"file_count"`
		FileSize  int    `toml:"file_size_mb"`
		KeepDays  int    `toml:"keep_days"`
		Console   bool   `toml:"console"`
	} `toml:"log"`
}

func fill(raw rawConfig) Config {
	cfg := Config{}
	cfg.DataDir = mustExpand(orDefault(raw.DataDir, defaultDataDir))
	cfg.DBPath = pathOr(raw.DBPath, filepath.Join(cfg.DataDir, "snout.db"))
	cfg.ErrorLogPath = pathOr(raw.ErrorLogPath, filepath.Join(cfg.DataDir, "errors.log"))
	cfg.PrefsPath = pathOr(raw.PrefsPath, mustExpand(defaultConfigDir+"/prefs.toml"))
	cfg.CredentialsPath = pathOr(raw.CredentialsPath, mustExpand(defaultConfigDir+"/credentials.json"))
	cfg.DownloadDir = pathOr(raw.DownloadDir, "")
	cfg.SuggestAddr = orDefault(raw.SuggestAddr, defaultSuggestAddr)

	cfg.Log = LogConfig{
		File:      pathOr(raw.Log.File, filepath.Join(cfg.DataDir, "logs", "snout.log")),
		Level:     strings.ToLower(orDefault(raw.Log.Level, defaultLogLevel)),
		FileCount: positiveOr(raw.Log.FileCount, defaultLogFiles),
		FileSize:  positiveOr(raw.Log.FileSize, defaultLogFileMB),
		KeepDays:  positiveOr(raw.Log.KeepDays, defaultLogKeepDays),
		Console:   raw.Log.Console,
	}
	return cfg
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}

// pathOr expands value, or returns def when value is blank.
func pathOr(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return mustExpand(value)
}

func positiveOr(value, def int) int {
	if value > 0 {
		return value
	}
	return def
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute. Blank paths are
// returned unchanged.
func ExpandPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return path
	}
	return mustExpand(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
