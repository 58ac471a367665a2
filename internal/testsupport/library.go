package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lunedor/plex-parity/internal/library"
)

// FakeLibrary is an in-memory library.Provider preserving show insertion order.
type FakeLibrary struct {
	mu sync.Mutex

	order     []string
	shows     map[string]library.Show
	Watchlist []library.WatchlistItem

	// PingErr fails Ping (and ListShows) when set.
	PingErr error
	// FetchErr fails FetchShow for specific keys.
	FetchErr map[string]error

	fetched []string
}

var _ library.Provider = (*FakeLibrary)(nil)

// NewFakeLibrary returns a library holding shows in the given order.
func NewFakeLibrary(shows ...library.Show) *FakeLibrary {
	f := &FakeLibrary{shows: make(map[string]library.Show), FetchErr: make(map[string]error)}
	for _, show := range shows {
		f.Put(show)
	}
	return f
}

// Put adds or replaces a show.
func (f *FakeLibrary) Put(show library.Show) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shows[show.Key]; !ok {
		f.order = append(f.order, show.Key)
	}
	f.shows[show.Key] = show
}

// Delete removes a show.
func (f *FakeLibrary) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.shows, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Fetched returns the keys passed to FetchShow, in call order.
func (f *FakeLibrary) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func (f *FakeLibrary) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PingErr
}

func (f *FakeLibrary) ListShows(context.Context, string) ([]library.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PingErr != nil {
		return nil, f.PingErr
	}
	out := make([]library.Show, 0, len(f.order))
	for _, key := range f.order {
		show := f.shows[key]
		show.Episodes = nil
		out = append(out, show)
	}
	return out, nil
}

func (f *FakeLibrary) FetchShow(_ context.Context, key string) (library.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, key)
	if err := f.FetchErr[key]; err != nil {
		return library.Show{}, err
	}
	show, ok := f.shows[key]
	if !ok {
		return library.Show{}, fmt.Errorf("fetch show %s: %w", key, library.ErrNotFound)
	}
	return show, nil
}

func (f *FakeLibrary) ListWatchlist(context.Context) ([]library.WatchlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]library.WatchlistItem(nil), f.Watchlist...), nil
}
