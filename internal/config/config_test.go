package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/Lunedor/plex-parity/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("PLEX_TOKEN", "")
	t.Setenv("PLEX_URL", "")
	os.Unsetenv("TMDB_API_KEY")
	os.Unsetenv("PLEX_TOKEN")
	os.Unsetenv("PLEX_URL")
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("PLEX_TOKEN", "plex-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "plexparity")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Plex.Token != "plex-token" {
		t.Fatalf("expected Plex token from env, got %q", cfg.Plex.Token)
	}
	if cfg.Scan.BatchSize != 3 {
		t.Fatalf("expected default batch size 3, got %d", cfg.Scan.BatchSize)
	}
	if cfg.Scan.Scope != config.ScopeAllLibrary {
		t.Fatalf("unexpected default scope %q", cfg.Scan.Scope)
	}
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("expected credentials satisfied, got %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.StateDir); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
	if filepath.Dir(cfg.ShowCachePath()) != cfg.Paths.StateDir {
		t.Fatalf("expected show cache under state dir, got %q", cfg.ShowCachePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")

	type file struct {
		Plex config.Plex `toml:"plex"`
		TMDB config.TMDB `toml:"tmdb"`
		Scan config.Scan `toml:"scan"`
	}
	payload, err := toml.Marshal(file{
		Plex: config.Plex{URL: "http://plex.local:32400/", Token: "abc", Library: "Series"},
		TMDB: config.TMDB{APIKey: "file-key"},
		Scan: config.Scan{Scope: "WATCHLIST_ONLY", BatchSize: 5, Schedule: "0 6 * * *"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Plex.URL != "http://plex.local:32400" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Plex.URL)
	}
	if !cfg.WatchlistOnly() {
		t.Fatalf("expected watchlist scope, got %q", cfg.Scan.Scope)
	}
	if cfg.Scan.BatchSize != 5 {
		t.Fatalf("expected batch size 5, got %d", cfg.Scan.BatchSize)
	}
}

func TestEnvVarDoesNotOverrideFileToken(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMDB_API_KEY", "env-key")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tmdb]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "file-key" {
		t.Fatalf("expected file key to win, got %q", cfg.TMDB.APIKey)
	}
}

func TestRequireCredentialsListsAllMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Plex.URL = ""
	err := cfg.RequireCredentials()
	if err == nil {
		t.Fatal("expected missing credentials error")
	}
	for _, field := range []string{"plex.url", "plex.token", "tmdb.api_key"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s in %q", field, err)
		}
	}
	if strings.Contains(err.Error(), "plex.library") {
		t.Fatalf("did not expect plex.library in %q", err)
	}
}

func TestCreateSample(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists || cfg.Plex.Library != "TV Shows" {
		t.Fatalf("unexpected sample config: %#v", cfg.Plex)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"scope", func(c *config.Config) { c.Scan.Scope = "everything" }},
		{"batch", func(c *config.Config) { c.Scan.BatchSize = -1 }},
		{"schedule", func(c *config.Config) { c.Scan.Schedule = "every day" }},
		{"schedule mode", func(c *config.Config) { c.Scan.ScheduleMode = "deep" }},
		{"level", func(c *config.Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tt.name)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
