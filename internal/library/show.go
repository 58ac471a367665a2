package library

import (
	"slices"
	"strconv"
	"strings"
)

// Show is a TV show as the local library sees it.
type Show struct {
	Key   string
	Title string
	Year  int
	// Guids are the external hint identifiers, e.g. "tmdb://1396" or "imdb://tt0903747".
	Guids []string
	// GUID is the raw agent identity, e.g. "plex://show/5d9c086c...".
	GUID string
	// Only FetchShow populates Episodes.
	Episodes Episodes
}

// Episodes maps season index to the episode indices present locally.
type Episodes map[int][]int

// WatchlistItem is a show on the account watchlist.
type WatchlistItem struct {
	Title string
	Year  int
	Guids []string
	GUID  string
}

// Signature identifies the local record for change detection: title, year,
// and the sorted hint identifiers.
func (s Show) Signature() string {
	ids := slices.Clone(s.Guids)
	slices.Sort(ids)
	return s.Title + "|" + strconv.Itoa(s.Year) + "|" + strings.Join(ids, "|")
}

// TMDBHint returns the catalog id embedded in a tmdb:// hint.
func (s Show) TMDBHint() (int64, bool) {
	var (
		id    int64
		found bool
	)
	for _, raw := range s.Guids {
		value, ok := strings.CutPrefix(raw, "tmdb://")
		if !ok {
			continue
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || parsed <= 0 {
			continue
		}
		id, found = parsed, true
	}
	return id, found
}

// IMDbHint returns the IMDb id embedded in an imdb:// hint.
func (s Show) IMDbHint() string {
	var id string
	for _, raw := range s.Guids {
		if value, ok := strings.CutPrefix(raw, "imdb://"); ok && strings.TrimSpace(value) != "" {
			id = strings.TrimSpace(value)
		}
	}
	return id
}

// MaxSeason returns the highest local season index, or zero.
func (e Episodes) MaxSeason() int {
	highest := 0
	for season := range e {
		highest = max(highest, season)
	}
	return highest
}

// Has reports whether the season/episode pair exists locally.
func (e Episodes) Has(season, number int) bool {
	return slices.Contains(e[season], number)
}

func guidSet(primary string, guids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(guids)+1)
	for _, raw := range guids {
		if raw = strings.ToLower(strings.TrimSpace(raw)); raw != "" {
			set[raw] = struct{}{}
		}
	}
	if primary = strings.ToLower(strings.TrimSpace(primary)); primary != "" {
		set[primary] = struct{}{}
	}
	return set
}

type titleYear struct {
	title string
	year  int
}

// FilterByWatchlist keeps the shows that share a guid with any watchlist item
// or match one on lowercased title and year.
func FilterByWatchlist(shows []Show, watchlist []WatchlistItem) []Show {
	if len(watchlist) == 0 {
		return nil
	}
	guids := make(map[string]struct{})
	titles := make(map[titleYear]struct{}, len(watchlist))
	for _, item := range watchlist {
		for id := range guidSet(item.GUID, item.Guids) {
			guids[id] = struct{}{}
		}
		titles[titleYear{strings.ToLower(strings.TrimSpace(item.Title)), item.Year}] = struct{}{}
	}

	var filtered []Show
	for _, show := range shows {
		matched := false
		for id := range guidSet(show.GUID, show.Guids) {
			if _, ok := guids[id]; ok {
				matched = true
				break
			}
		}
		if !matched {
			_, matched = titles[titleYear{strings.ToLower(strings.TrimSpace(show.Title)), show.Year}]
		}
		if matched {
			filtered = append(filtered, show)
		}
	}
	return filtered
}
