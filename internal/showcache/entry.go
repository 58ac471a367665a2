package showcache

import (
	"slices"
	"strings"
	"time"

	"github.com/Lunedor/plex-parity/internal/episode"
)

// Status values TMDB uses for shows that will not air again.
const (
	StatusEnded    = "Ended"
	StatusCanceled = "Canceled"
)

// Entry is the cached state for one library show.
type Entry struct {
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Signature string `json:"signature"`

	CatalogID *int64 `json:"catalog_id,omitempty"`
	Source    string `json:"source,omitempty"`
	ManualID  *int64 `json:"manual_id,omitempty"`

	SecondaryID string `json:"secondary_id,omitempty"`
	Status      string `json:"status,omitempty"`
	PosterURL   string `json:"poster_url,omitempty"`

	MissingRaw []string           `json:"missing_raw,omitempty"`
	Missing    []string           `json:"missing"`
	Upcoming   []episode.Upcoming `json:"upcoming,omitempty"`
	NextAir    *episode.Upcoming  `json:"next_air,omitempty"`

	Ignored   []string `json:"ignored"`
	IgnoreAll bool     `json:"ignore_all"`

	ForceRescan bool      `json:"force_rescan,omitempty"`
	LastScanAt  time.Time `json:"last_scan_at,omitzero"`
}

// Terminal reports whether the cached status marks a finished show.
func (e Entry) Terminal() bool {
	status := strings.TrimSpace(e.Status)
	return strings.EqualFold(status, StatusEnded) || strings.EqualFold(status, StatusCanceled)
}

// FullyResolved reports whether both the catalog id and the secondary id are known.
func (e Entry) FullyResolved() bool {
	return e.CatalogID != nil && *e.CatalogID > 0 && strings.TrimSpace(e.SecondaryID) != ""
}

// Active reports whether an incremental or refresh scan should revisit the
// show: a pending rescan, no resolution, visible gaps, or a show still airing.
func (e Entry) Active() bool {
	return e.ForceRescan || e.CatalogID == nil || len(e.Missing) > 0 || !e.Terminal()
}

// Pinned reports whether a manual override is set.
func (e Entry) Pinned() bool {
	return e.ManualID != nil
}

func (e Entry) clone() Entry {
	out := e
	out.CatalogID = clonePtr(e.CatalogID)
	out.ManualID = clonePtr(e.ManualID)
	out.MissingRaw = slices.Clone(e.MissingRaw)
	out.Missing = slices.Clone(e.Missing)
	out.Upcoming = slices.Clone(e.Upcoming)
	out.Ignored = slices.Clone(e.Ignored)
	if e.NextAir != nil {
		next := *e.NextAir
		out.NextAir = &next
	}
	return out
}

// clearDerived drops resolution and diff fields, leaving identity and overrides.
func (e *Entry) clearDerived() {
	e.CatalogID = nil
	e.Source = ""
	e.SecondaryID = ""
	e.Status = ""
	e.PosterURL = ""
	e.MissingRaw = nil
	e.Missing = []string{}
	e.Upcoming = nil
	e.NextAir = nil
}

func (e *Entry) recompute() {
	e.Missing = VisibleMissing(e.MissingRaw, e.Ignored, e.IgnoreAll)
}

// VisibleMissing filters raw missing codes through the user's ignores. The
// result is empty when ignoreAll is set, otherwise raw minus ignored, sorted.
func VisibleMissing(raw, ignored []string, ignoreAll bool) []string {
	if ignoreAll {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, code := range episode.SortCodes(raw) {
		if !slices.Contains(ignored, code) {
			out = append(out, code)
		}
	}
	return out
}

func clonePtr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
