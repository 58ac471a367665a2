package library_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/Lunedor/plex-parity/internal/library"
)

func newPlexServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"abc"}}`))
	})
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[
			{"key":"1","type":"movie","title":"Movies"},
			{"key":"2","type":"show","title":"TV Shows"}
		]}}`))
	})
	mux.HandleFunc("/library/sections/2/all", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("includeGuids") != "1" {
			t.Errorf("expected includeGuids=1, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":2,"Metadata":[
			{"ratingKey":"10","type":"show","title":"Show A","year":2020,"guid":"plex://show/a","Guid":[{"id":"tmdb://7"},{"id":"imdb://tt1"}]},
			{"ratingKey":"11","type":"show","title":"Show B","year":2018}
		]}}`))
	})
	mux.HandleFunc("/library/metadata/10", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"10","type":"show","title":"Show A","year":2020,"Guid":[{"id":"tmdb://7"}]}
		]}}`))
	})
	mux.HandleFunc("/library/metadata/10/allLeaves", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"type":"episode","parentIndex":1,"index":2},
			{"type":"episode","parentIndex":1,"index":1},
			{"type":"episode","parentIndex":1,"index":1},
			{"type":"episode","parentIndex":2,"index":1},
			{"type":"episode","parentIndex":2,"index":0}
		]}}`))
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListShows(t *testing.T) {
	server := newPlexServer(t)
	client, err := library.New(server.URL, "token")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	shows, err := client.ListShows(context.Background(), "tv shows")
	if err != nil {
		t.Fatalf("ListShows returned error: %v", err)
	}
	if len(shows) != 2 {
		t.Fatalf("expected 2 shows, got %d", len(shows))
	}
	if id, ok := shows[0].TMDBHint(); !ok || id != 7 {
		t.Fatalf("expected tmdb hint 7, got %d %v", id, ok)
	}
	if shows[0].IMDbHint() != "tt1" {
		t.Fatalf("expected imdb hint tt1, got %q", shows[0].IMDbHint())
	}
}

func TestListShowsUnknownSection(t *testing.T) {
	server := newPlexServer(t)
	client, _ := library.New(server.URL, "token")
	if _, err := client.ListShows(context.Background(), "Anime"); !errors.Is(err, library.ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestFetchShowBuildsEpisodeMap(t *testing.T) {
	server := newPlexServer(t)
	client, _ := library.New(server.URL, "token")

	show, err := client.FetchShow(context.Background(), "10")
	if err != nil {
		t.Fatalf("FetchShow returned error: %v", err)
	}
	if !slices.Equal(show.Episodes[1], []int{1, 2}) {
		t.Fatalf("unexpected season 1 episodes %v", show.Episodes[1])
	}
	if !slices.Equal(show.Episodes[2], []int{1}) {
		t.Fatalf("unexpected season 2 episodes %v", show.Episodes[2])
	}
	if show.Episodes.MaxSeason() != 2 || !show.Episodes.Has(1, 2) || show.Episodes.Has(2, 2) {
		t.Fatalf("unexpected episode helpers for %#v", show.Episodes)
	}
}

func TestFetchShowMissing(t *testing.T) {
	server := newPlexServer(t)
	client, _ := library.New(server.URL, "token")
	if _, err := client.FetchShow(context.Background(), "99"); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBadTokenIsUnauthorized(t *testing.T) {
	server := newPlexServer(t)
	client, _ := library.New(server.URL, "wrong")
	if err := client.Ping(context.Background()); !errors.Is(err, library.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := server.URL
	server.Close()

	client, _ := library.New(base, "token")
	if err := client.Ping(context.Background()); !errors.Is(err, library.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestListWatchlistPaginates(t *testing.T) {
	calls := 0
	discover := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("X-Plex-Container-Start") {
		case "0":
			_, _ = w.Write([]byte(`{"MediaContainer":{"totalSize":2,"Metadata":[{"type":"show","title":"Show A","year":2020,"guid":"plex://show/a"}]}}`))
		default:
			_, _ = w.Write([]byte(`{"MediaContainer":{"totalSize":2,"Metadata":[{"type":"show","title":"Show C","year":2022}]}}`))
		}
	}))
	t.Cleanup(discover.Close)

	client, _ := library.New("http://127.0.0.1:1", "token", library.WithDiscoverURL(discover.URL))
	items, err := client.ListWatchlist(context.Background())
	if err != nil {
		t.Fatalf("ListWatchlist returned error: %v", err)
	}
	if len(items) != 2 || calls != 2 {
		t.Fatalf("expected 2 items over 2 calls, got %d items and %d calls", len(items), calls)
	}
}
