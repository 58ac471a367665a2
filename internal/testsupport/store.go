package testsupport

import (
	"testing"

	"github.com/Lunedor/plex-parity/internal/config"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/scanlog"
	"github.com/Lunedor/plex-parity/internal/seasoncache"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

// MustOpenShowCache opens the show cache under cfg's state directory.
func MustOpenShowCache(t testing.TB, cfg *config.Config) *showcache.Store {
	t.Helper()

	store, err := showcache.Open(cfg.ShowCachePath(), logging.NewNop())
	if err != nil {
		t.Fatalf("showcache.Open: %v", err)
	}
	return store
}

// MustOpenSeasonCache opens the season cache and registers cleanup.
func MustOpenSeasonCache(t testing.TB, cfg *config.Config) *seasoncache.Cache {
	t.Helper()

	cache, err := seasoncache.Open(cfg.SeasonCachePath(), logging.NewNop())
	if err != nil {
		t.Fatalf("seasoncache.Open: %v", err)
	}
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}

// MustOpenHistory opens the scan history database and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *scanlog.Store {
	t.Helper()

	store, err := scanlog.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("scanlog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
