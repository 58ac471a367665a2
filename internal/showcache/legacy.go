package showcache

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Lunedor/plex-parity/internal/episode"
)

// legacyEntry is the pre-versioned record layout.
type legacyEntry struct {
	Title            string            `json:"title"`
	Year             json.RawMessage   `json:"year"`
	PlexSignature    string            `json:"plex_signature"`
	TMDBID           json.RawMessage   `json:"tmdb_id"`
	TMDBSource       string            `json:"tmdb_source"`
	ManualTMDBID     json.RawMessage   `json:"manual_tmdb_id"`
	IMDbID           *string           `json:"imdb_id"`
	Status           *string           `json:"status"`
	PosterURL        *string           `json:"poster_url"`
	MissingRaw       []string          `json:"missing_raw"`
	Missing          []string          `json:"missing"`
	NextAir          *episode.Upcoming `json:"next_air"`
	IgnoredMissing   []string          `json:"ignored_missing"`
	IgnoreAllMissing bool              `json:"ignore_all_missing"`
	ForceRescan      bool              `json:"force_rescan"`
	LastScanAt       string            `json:"last_scan_at"`
}

var legacyTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func (l legacyEntry) migrate() Entry {
	entry := Entry{
		Title:       l.Title,
		Year:        int(looseInt(l.Year)),
		Signature:   l.PlexSignature,
		Source:      l.TMDBSource,
		SecondaryID: deref(l.IMDbID),
		Status:      deref(l.Status),
		PosterURL:   deref(l.PosterURL),
		MissingRaw:  l.MissingRaw,
		Ignored:     episode.SortCodes(l.IgnoredMissing),
		IgnoreAll:   l.IgnoreAllMissing,
		ForceRescan: l.ForceRescan,
	}
	if id := looseInt(l.TMDBID); id > 0 {
		entry.CatalogID = &id
	}
	if id := looseInt(l.ManualTMDBID); id > 0 {
		entry.ManualID = &id
	}
	// Older records kept only the filtered list.
	if entry.MissingRaw == nil {
		entry.MissingRaw = episode.SortCodes(l.Missing)
	}
	if l.NextAir != nil && l.NextAir.Date != "" {
		next := *l.NextAir
		entry.NextAir = &next
		entry.Upcoming = []episode.Upcoming{next}
	}
	for _, layout := range legacyTimeLayouts {
		if ts, err := time.ParseInLocation(layout, l.LastScanAt, time.Local); err == nil {
			entry.LastScanAt = ts
			break
		}
	}
	if entry.Ignored == nil {
		entry.Ignored = []string{}
	}
	entry.recompute()
	return entry
}

// looseInt accepts a JSON number or numeric string; anything else is zero.
func looseInt(raw json.RawMessage) int64 {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if value == "" || value == "null" {
		return 0
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
