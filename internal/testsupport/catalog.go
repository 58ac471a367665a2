package testsupport

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Lunedor/plex-parity/internal/catalog"
)

// FakeCatalog is an in-memory catalog.Provider. Missing records return
// catalog.ErrNotFound; Unavailable makes every call fail as a transport error.
type FakeCatalog struct {
	mu sync.Mutex

	Details map[int64]*catalog.ShowDetail
	Seasons map[int64]map[int]*catalog.SeasonDetail
	IDs     map[int64]*catalog.ExternalIDs
	// Search is keyed by SearchKey(query, year).
	Search map[string][]catalog.SearchResult
	// Find is keyed by IMDb id.
	Find map[string][]catalog.SearchResult

	Unavailable bool

	calls map[string]int
}

var _ catalog.Provider = (*FakeCatalog)(nil)

// NewFakeCatalog returns an empty fake.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Details: make(map[int64]*catalog.ShowDetail),
		Seasons: make(map[int64]map[int]*catalog.SeasonDetail),
		IDs:     make(map[int64]*catalog.ExternalIDs),
		Search:  make(map[string][]catalog.SearchResult),
		Find:    make(map[string][]catalog.SearchResult),
		calls:   make(map[string]int),
	}
}

// SearchKey builds the Search map key for a query and year (0 for none).
func SearchKey(query string, year int) string {
	return query + "|" + strconv.Itoa(year)
}

// AddSeason registers a season with (episode number, air date) pairs.
func (f *FakeCatalog) AddSeason(id int64, season int, episodes ...catalog.Episode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Seasons[id] == nil {
		f.Seasons[id] = make(map[int]*catalog.SeasonDetail)
	}
	f.Seasons[id][season] = &catalog.SeasonDetail{SeasonNumber: season, Episodes: episodes}
}

// Ep builds a catalog episode.
func Ep(number int, airDate string) catalog.Episode {
	return catalog.Episode{EpisodeNumber: catalog.EpisodeNumber{Value: number, Valid: true}, AirDate: airDate}
}

// Calls returns how many times the named method was invoked.
func (f *FakeCatalog) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of catalog calls of any kind.
func (f *FakeCatalog) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// ResetCalls clears the call counters.
func (f *FakeCatalog) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func (f *FakeCatalog) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.Unavailable {
		return fmt.Errorf("%w: fake offline", catalog.ErrUnavailable)
	}
	return nil
}

func (f *FakeCatalog) ShowDetail(_ context.Context, id int64) (*catalog.ShowDetail, error) {
	if err := f.record("ShowDetail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	detail, ok := f.Details[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *detail
	return &clone, nil
}

func (f *FakeCatalog) SeasonDetail(_ context.Context, id int64, season int) (*catalog.SeasonDetail, error) {
	if err := f.record("SeasonDetail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	detail, ok := f.Seasons[id][season]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *detail
	return &clone, nil
}

func (f *FakeCatalog) ExternalIDs(_ context.Context, id int64) (*catalog.ExternalIDs, error) {
	if err := f.record("ExternalIDs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.IDs[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *ids
	return &clone, nil
}

func (f *FakeCatalog) SearchShows(_ context.Context, query string, year int) ([]catalog.SearchResult, error) {
	if err := f.record("SearchShows"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.SearchResult(nil), f.Search[SearchKey(query, year)]...), nil
}

func (f *FakeCatalog) FindByExternalID(_ context.Context, imdbID string) ([]catalog.SearchResult, error) {
	if err := f.record("FindByExternalID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.SearchResult(nil), f.Find[imdbID]...), nil
}

func (f *FakeCatalog) ShowExists(_ context.Context, id int64) (bool, error) {
	if err := f.record("ShowExists"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Details[id]
	return ok, nil
}

func (f *FakeCatalog) PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return catalog.DefaultImageBaseURL + path
}
