// Package prefs handles snout user preferences persistence.
// Preferences are stored in ~/.config/snout/prefs.toml as flat keys.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for snout.
type Prefs struct {
	// Account
	Username string `toml:"username"`
	APIKey   string `toml:"api_key"`
	Host     string `toml:"host"`
	SafeMode bool   `toml:"safe_mode"`

	// Browsing
	PostsPerPage    int      `toml:"posts_per_page"`
	DefaultTags     string   `toml:"default_tags"`
	RatingFilter    []string `toml:"rating_filter"`
	ShowDeleted     bool     `toml:"show_deleted"`
	HideBlacklisted bool     `toml:"hide_blacklisted"`
	Blacklist       []string `toml:"blacklist"`
	SortOrder       string   `toml:"sort_order"`
	PreviewQuality  string   `toml:"preview_quality"`

	// Display
	Theme             string `toml:"theme"`
	ShowScores        bool   `toml:"show_scores"`
	ShowTagCategories bool   `toml:"show_tag_categories"`
	CompactRows       bool   `toml:"compact_rows"`
	DateFormat        string `toml:"date_format"`
	WikiStyle         string `toml:"wiki_style"`
	WrapWidth         int    `toml:"wrap_width"`

	// Media
	DownloadDir          string `toml:"download_dir"`
	DownloadNameTemplate string `toml:"download_name_template"`
	OpenCommand          string `toml:"open_command"`
	Autoplay             bool   `toml:"autoplay"`
	Mute                 bool   `toml:"mute"`
	Loop                 bool   `toml:"loop"`

	// Followed tags. FollowInterval is in minutes.
	FollowEnabled   bool `toml:"follow_enabled"`
	FollowInterval  int  `toml:"follow_interval"`
	FollowNotify    bool `toml:"follow_notify"`
	FollowBatchSize int  `toml:"follow_batch_size"`

	// History
	SaveSearchHistory bool `toml:"save_search_history"`
	HistoryLimit      int  `toml:"history_limit"`

	// Network
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	CacheSize             int `toml:"cache_size"`
	CacheTTLSeconds       int `toml:"cache_ttl_seconds"`

	// Diagnostics
	ErrorLogEnabled bool `toml:"error_log_enabled"`
}

const (
	defaultPrefsPath = "~/.config/snout/prefs.toml"
	defaultTheme     = "Nightfox"
)

// ErrUnknownKey is returned by Get, Set and Reset for keys Prefs lacks.
var ErrUnknownKey = errors.New("unknown preference key")

// choices restricts string and list keys to a fixed set of values.
var choices = map[string][]string{
	"preview_quality": {"preview", "sample", "original"},
	"rating_filter":   {"s", "q", "e"},
	"sort_order":      {"", "id", "id_asc", "score", "favcount", "random", "updated", "comment_count"},
	"wiki_style":      {"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"},
}

// validWikiStyle accepts a named glamour style or the path of a JSON style
// file.
func validWikiStyle(style string) bool {
	return slices.Contains(choices["wiki_style"], style) || strings.HasSuffix(strings.ToLower(style), ".json")
}

// minimums bounds int keys from below. Keys not listed must be >= 0.
var minimums = map[string]int{
	"posts_per_page":          1,
	"follow_interval":         1,
	"follow_batch_size":       1,
	"request_timeout_seconds": 1,
}

// maximums bounds int keys from above.
var maximums = map[string]int{
	"posts_per_page":    320,
	"follow_batch_size": 16,
}

// Default returns the preferences used when no file exists.
func Default() Prefs {
	return Prefs{
		Host:                  "e621.net",
		PostsPerPage:          75,
		RatingFilter:          []string{"s", "q", "e"},
		HideBlacklisted:       true,
		Blacklist:             []string{},
		PreviewQuality:        "sample",
		Theme:                 defaultTheme,
		ShowScores:            true,
		ShowTagCategories:     true,
		DateFormat:            "2006-01-02 15:04",
		WikiStyle:             "auto",
		WrapWidth:             100,
		DownloadDir:           "~/Downloads/snout",
		DownloadNameTemplate:  "{id}.{ext}",
		Loop:                  true,
		FollowEnabled:         true,
		FollowInterval:        30,
		FollowNotify:          true,
		FollowBatchSize:       4,
		SaveSearchHistory:     true,
		HistoryLimit:          200,
		RequestTimeoutSeconds: 15,
		CacheSize:             256,
		CacheTTLSeconds:       300,
		ErrorLogEnabled:       true,
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default(), nil
	}

	prefs := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Default(), nil // Graceful degradation
	}

	prefs.normalize()
	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
// The file may hold an API key, so it is private to the user.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// normalize replaces values a hand-edited file may have broken.
func (p *Prefs) normalize() {
	def := Default()
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = def.Theme
	}
	if strings.TrimSpace(p.Host) == "" {
		p.Host = def.Host
	}
	if !slices.Contains(choices["preview_quality"], p.PreviewQuality) {
		p.PreviewQuality = def.PreviewQuality
	}
	if !validWikiStyle(p.WikiStyle) {
		p.WikiStyle = def.WikiStyle
	}
	if strings.TrimSpace(p.DownloadNameTemplate) == "" {
		p.DownloadNameTemplate = def.DownloadNameTemplate
	}
	if p.RatingFilter == nil {
		p.RatingFilter = def.RatingFilter
	}
	if p.Blacklist == nil {
		p.Blacklist = []string{}
	}

	v := reflect.ValueOf(p).Elem()
	dv := reflect.ValueOf(def)
	for i, f := range fields() {
		if f.kind != reflect.Int {
			continue
		}
		n := v.Field(i).Int()
		if lo, ok := minimums[f.key]; (ok && n < int64(lo)) || n < 0 {
			v.Field(i).Set(dv.Field(i))
		} else if hi, ok := maximums[f.key]; ok && n > int64(hi) {
			v.Field(i).SetInt(int64(hi))
		}
	}
}

type field struct {
	key  string
	kind reflect.Kind
}

// fields lists the toml keys of Prefs in declaration order.
func fields() []field {
	t := reflect.TypeOf(Prefs{})
	out := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		out = append(out, field{key: strings.Split(sf.Tag.Get("toml"), ",")[0], kind: sf.Type.Kind()})
	}
	return out
}

// Keys returns every preference key in declaration order.
func Keys() []string {
	fs := fields()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.key
	}
	return out
}

func lookup(key string) (int, field, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	for i, f := range fields() {
		if f.key == key {
			return i, f, nil
		}
	}
	return 0, field{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Get returns the value of key formatted as Set accepts it. Lists are
// comma separated.
func Get(p Prefs, key string) (string, error) {
	i, f, err := lookup(key)
	if err != nil {
		return "", err
	}
	v := reflect.ValueOf(p).Field(i)
	switch f.kind {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Slice:
		return strings.Join(v.Interface().([]string), ", "), nil
	default:
		return v.String(), nil
	}
}

// Set parses value for key's type and stores it in p.
func Set(p *Prefs, key, value string) error {
	i, f, err := lookup(key)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(p).Elem().Field(i)
	value = strings.TrimSpace(value)
	switch f.kind {
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", f.key, value)
		}
		v.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", f.key, value)
		}
		lo, ok := minimums[f.key]
		if !ok {
			lo = 0
		}
		if n < lo {
			return fmt.Errorf("%s: must be at least %d", f.key, lo)
		}
		if hi, ok := maximums[f.key]; ok && n > hi {
			return fmt.Errorf("%s: must be at most %d", f.key, hi)
		}
		v.SetInt(int64(n))
	case reflect.Slice:
		list := splitList(value)
		if allowed, ok := choices[f.key]; ok {
			for _, item := range list {
				if !slices.Contains(allowed, item) {
					return fmt.Errorf("%s: %q is not one of %s", f.key, item, strings.Join(allowed, ", "))
				}
			}
		}
		v.Set(reflect.ValueOf(list))
	default:
		if f.key == "wiki_style" {
			if !validWikiStyle(value) {
				return fmt.Errorf("%s: %q is not a JSON style path or one of %s", f.key, value, strings.Join(choices[f.key], ", "))
			}
		} else if allowed, ok := choices[f.key]; ok && !slices.Contains(allowed, value) {
			return fmt.Errorf("%s: %q is not one of %s", f.key, value, strings.Join(allowed, ", "))
		}
		v.SetString(value)
	}
	return nil
}

// Reset restores key to its default value.
func Reset(p *Prefs, key string) error {
	i, _, err := lookup(key)
	if err != nil {
		return err
	}
	reflect.ValueOf(p).Elem().Field(i).Set(reflect.ValueOf(Default()).Field(i))
	return nil
}

func splitList(value string) []string {
	out := []string{}
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' }) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
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

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}
