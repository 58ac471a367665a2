package reconcile

import (
	"log/slog"

	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/showcache"
)

// Stats counts what a reconciliation touched.
type Stats struct {
	Removed int
	Changed int
}

// Store is the subset of the show cache the reconciler mutates.
type Store interface {
	Keys() []string
	Get(key string) (showcache.Entry, bool)
	Remove(key string) bool
	Relabel(key string, show library.Show) error
}

// Reconcile removes cache entries absent from live and relabels entries whose
// signature no longer matches the live record.
func Reconcile(store Store, live []library.Show, logger *slog.Logger) Stats {
	logger = logging.NewComponentLogger(logger, "reconcile")

	byKey := make(map[string]library.Show, len(live))
	for _, show := range live {
		byKey[show.Key] = show
	}

	var stats Stats
	for _, key := range store.Keys() {
		show, ok := byKey[key]
		if !ok {
			if store.Remove(key) {
				stats.Removed++
			}
			continue
		}
		entry, ok := store.Get(key)
		if !ok || entry.Signature == show.Signature() {
			continue
		}
		if err := store.Relabel(key, show); err != nil {
			logger.Debug("relabel failed", logging.String(logging.FieldShowKey, key), logging.Error(err))
			continue
		}
		logger.Debug("library identity changed",
			logging.String(logging.FieldShowKey, key),
			logging.String("title", show.Title),
			logging.Bool("pinned", entry.Pinned()),
		)
		stats.Changed++
	}

	if stats.Removed > 0 || stats.Changed > 0 {
		logger.Info("reconciled show cache",
			logging.String(logging.FieldEventType, "cache_reconciled"),
			logging.Int("removed", stats.Removed),
			logging.Int("changed", stats.Changed),
		)
	}
	return stats
}
