package showcache

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/Lunedor/plex-parity/internal/episode"
)

// Result is the presentation view of one cached show.
type Result struct {
	Key         string             `json:"key"`
	Title       string             `json:"title"`
	Year        int                `json:"year,omitempty"`
	Status      string             `json:"status"`
	CatalogID   int64              `json:"catalog_id,omitempty"`
	SecondaryID string             `json:"secondary_id,omitempty"`
	Source      string             `json:"source,omitempty"`
	PosterURL   string             `json:"poster_url,omitempty"`
	Missing     []string           `json:"missing"`
	Upcoming    []episode.Upcoming `json:"upcoming,omitempty"`
	NextAir     *episode.Upcoming  `json:"next_air,omitempty"`
	IgnoreAll   bool               `json:"ignore_all,omitempty"`
	LastScanAt  time.Time          `json:"last_scan_at,omitzero"`
}

// Ignored lists one show's ignore overrides.
type Ignored struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Year  int      `json:"year,omitempty"`
	Codes []string `json:"codes"`
	All   bool     `json:"all"`
}

// ResultFor builds the presentation view of one entry.
func ResultFor(key string, entry Entry) Result {
	status := entry.Status
	if status == "" {
		status = "Unknown"
	}
	res := Result{
		Key:         key,
		Title:       entry.Title,
		Year:        entry.Year,
		Status:      status,
		SecondaryID: entry.SecondaryID,
		Source:      entry.Source,
		PosterURL:   entry.PosterURL,
		Missing:     VisibleMissing(entry.MissingRaw, entry.Ignored, entry.IgnoreAll),
		Upcoming:    slices.Clone(entry.Upcoming),
		IgnoreAll:   entry.IgnoreAll,
		LastScanAt:  entry.LastScanAt,
	}
	if entry.CatalogID != nil {
		res.CatalogID = *entry.CatalogID
	}
	if entry.NextAir != nil {
		next := *entry.NextAir
		res.NextAir = &next
	}
	return res
}

// Results returns the view of every titled entry, ordered by title then key.
func (s *Store) Results() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Result, 0, len(s.entries))
	for key, entry := range s.entries {
		if strings.TrimSpace(entry.Title) == "" {
			continue
		}
		out = append(out, ResultFor(key, entry))
	}
	slices.SortFunc(out, func(a, b Result) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.Key, b.Key),
		)
	})
	return out
}

// IgnoredEpisodes lists every show carrying an ignore override.
func (s *Store) IgnoredEpisodes() []Ignored {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Ignored
	for key, entry := range s.entries {
		if len(entry.Ignored) == 0 && !entry.IgnoreAll {
			continue
		}
		out = append(out, Ignored{
			Key:   key,
			Title: entry.Title,
			Year:  entry.Year,
			Codes: slices.Clone(entry.Ignored),
			All:   entry.IgnoreAll,
		})
	}
	slices.SortFunc(out, func(a, b Ignored) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.Key, b.Key),
		)
	})
	return out
}
