package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(p, Default()) {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "snout")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	content := "theme = \"Slate\"\nposts_per_page = 40\nblacklist = [\"gore\", \"scat -rating:s\"]\n"
	prefsFile := filepath.Join(prefsDir, "prefs.toml")
	if err := os.WriteFile(prefsFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Slate")
	}
	if p.PostsPerPage != 40 {
		t.Fatalf("PostsPerPage = %d, want 40", p.PostsPerPage)
	}
	if len(p.Blacklist) != 2 || p.Blacklist[1] != "scat -rating:s" {
		t.Fatalf("Blacklist = %q", p.Blacklist)
	}
	if p.Host != "e621.net" {
		t.Fatalf("Host = %q, want default kept", p.Host)
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	tmp := t.TempDir()
	prefsFile := filepath.Join(tmp, "subdir", "prefs.toml")

	p := Default()
	p.Theme = "Slate"
	p.APIKey = "secret"
	if err := Save(prefsFile, p); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(prefsFile)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(loaded, p) {
		t.Fatalf("loaded = %+v, want %+v", loaded, p)
	}
}

func TestLoad_NormalizesBrokenValues(t *testing.T) {
	tmp := t.TempDir()
	prefsFile := filepath.Join(tmp, "prefs.toml")
	content := "theme = \"\"\nposts_per_page = 9000\nfollow_interval = 0\nwiki_style = \"neon\"\ncache_size = -1\n"
	if err := os.WriteFile(prefsFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def := Default()
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if p.PostsPerPage != 320 {
		t.Fatalf("PostsPerPage = %d, want 320", p.PostsPerPage)
	}
	if p.FollowInterval != def.FollowInterval {
		t.Fatalf("FollowInterval = %d, want %d", p.FollowInterval, def.FollowInterval)
	}
	if p.WikiStyle != def.WikiStyle {
		t.Fatalf("WikiStyle = %q, want %q", p.WikiStyle, def.WikiStyle)
	}
	if p.CacheSize != def.CacheSize {
		t.Fatalf("CacheSize = %d, want %d", p.CacheSize, def.CacheSize)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	tmp := t.TempDir()
	prefsFile := filepath.Join(tmp, "prefs.toml")
	if err := os.WriteFile(prefsFile, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestKeys_CoverEveryField(t *testing.T) {
	keys := Keys()
	if len(keys) != reflect.TypeOf(Prefs{}).NumField() {
		t.Fatalf("len(Keys) = %d, want %d", len(keys), reflect.TypeOf(Prefs{}).NumField())
	}
	seen := map[string]bool{}
	for _, k := range keys {
		if k == "" || seen[k] {
			t.Fatalf("bad or duplicate key %q", k)
		}
		seen[k] = true
	}
	for _, want := range []string{"username", "api_key", "theme", "follow_interval", "error_log_enabled"} {
		if !seen[want] {
			t.Fatalf("missing key %q", want)
		}
	}
}

func TestGetSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"safe_mode", "true", "true"},
		{"posts_per_page", " 50 ", "50"},
		{"theme", "Kanagawa", "Kanagawa"},
		{"blacklist", "gore, scat,,  young -rating:s", "gore, scat, young -rating:s"},
		{"rating_filter", "s,q", "s, q"},
		{"RATING_FILTER", "", ""},
		{"preview_quality", "original", "original"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			p := Default()
			if err := Set(&p, tc.key, tc.value); err != nil {
				t.Fatalf("Set(%q, %q): %v", tc.key, tc.value, err)
			}
			got, err := Get(p, tc.key)
			if err != nil {
				t.Fatalf("Get(%q): %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("Get(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestSet_Rejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"safe_mode", "maybe"},
		{"posts_per_page", "many"},
		{"posts_per_page", "0"},
		{"posts_per_page", "321"},
		{"cache_size", "-5"},
		{"rating_filter", "s,x"},
		{"preview_quality", "huge"},
		{"wiki_style", "neon"},
	}
	for _, tc := range tests {
		p := Default()
		if err := Set(&p, tc.key, tc.value); err == nil {
			t.Fatalf("Set(%q, %q) succeeded, want error", tc.key, tc.value)
		}
		if !reflect.DeepEqual(p, Default()) {
			t.Fatalf("Set(%q, %q) modified prefs on error", tc.key, tc.value)
		}
	}
}

func TestSet_WikiStyleMatchesRenderer(t *testing.T) {
	for _, style := range []string{"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night", "/home/me/wiki.json"} {
		p := Default()
		if err := Set(&p, "wiki_style", style); err != nil {
			t.Fatalf("Set(wiki_style, %q): %v", style, err)
		}
		if p.WikiStyle != style {
			t.Fatalf("WikiStyle = %q, want %q", p.WikiStyle, style)
		}
	}
}

func TestLoad_KeepsJSONWikiStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("wiki_style = \"styles/custom.JSON\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.WikiStyle != "styles/custom.JSON" {
		t.Fatalf("WikiStyle = %q, want the JSON path", p.WikiStyle)
	}
}

func TestUnknownKey(t *testing.T) {
	p := Default()
	if _, err := Get(p, "nope"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Get error = %v, want ErrUnknownKey", err)
	}
	if err := Set(&p, "nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Set error = %v, want ErrUnknownKey", err)
	}
	if err := Reset(&p, "nope"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Reset error = %v, want ErrUnknownKey", err)
	}
}

func TestReset(t *testing.T) {
	p := Default()
	p.Theme = "Slate"
	p.Blacklist = []string{"gore"}
	if err := Reset(&p, "theme"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := Reset(&p, "blacklist"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !reflect.DeepEqual(p, Default()) {
		t.Fatalf("after Reset = %+v, want defaults", p)
	}
}
