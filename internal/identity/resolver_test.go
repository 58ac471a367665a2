package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Lunedor/plex-parity/internal/catalog"
	"github.com/Lunedor/plex-parity/internal/identity"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
	"github.com/Lunedor/plex-parity/internal/testsupport"
)

func int64Ptr(v int64) *int64 { return &v }

func newResolver(cat *testsupport.FakeCatalog) *identity.Resolver {
	return identity.NewResolver(cat, logging.NewNop())
}

func TestResolveManualOverrideWithoutNetwork(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	show := library.Show{Key: "1", Title: "Show", Guids: []string{"tmdb://5"}}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{ManualID: int64Ptr(77)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 77 || res.Source != identity.SourceManual {
		t.Fatalf("Resolve = %+v, want manual 77", res)
	}
	if cat.TotalCalls() != 0 {
		t.Fatalf("expected no catalog calls, got %d", cat.TotalCalls())
	}
}

func TestResolveLocalHint(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	show := library.Show{Key: "1", Title: "Show", Guids: []string{"imdb://tt1", "tmdb://5"}}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{CachedID: int64Ptr(9)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 5 || res.Source != identity.SourceLocalHint {
		t.Fatalf("Resolve = %+v, want local-hint 5", res)
	}
}

func TestResolveSecondaryUsesFirstResult(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Find["tt0903747"] = []catalog.SearchResult{{ID: 1396, Name: "Breaking Bad"}, {ID: 2, Name: "Other"}}
	show := library.Show{Key: "1", Title: "Breaking Bad", Guids: []string{"imdb://tt0903747"}}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 1396 || res.Source != identity.SourceSecondary {
		t.Fatalf("Resolve = %+v, want secondary 1396", res)
	}
}

func TestResolveCachedIDRevalidated(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Details[42] = &catalog.ShowDetail{ID: 42, Name: "Show"}
	show := library.Show{Key: "1", Title: "Show", Year: 2020}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{CachedID: int64Ptr(42)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 42 || res.Source != identity.SourceCache {
		t.Fatalf("Resolve = %+v, want cache 42", res)
	}
	if cat.Calls("SearchShows") != 0 {
		t.Fatal("expected search to be skipped after cache confirmation")
	}
}

func TestResolveStaleCacheFallsThroughToSearch(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Search[testsupport.SearchKey("Show A", 2020)] = []catalog.SearchResult{
		{ID: 1, Name: "Show A", FirstAirDate: "2020-05-01", Popularity: 40},
		{ID: 2, Name: "Show A Extended", FirstAirDate: "2021-01-01", Popularity: 10},
	}
	show := library.Show{Key: "1", Title: "Show A", Year: 2020}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{CachedID: int64Ptr(999)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 1 || res.Source != identity.SourceAuto {
		t.Fatalf("Resolve = %+v, want auto 1", res)
	}
	if got := cat.Calls("SearchShows"); got != 4 {
		t.Fatalf("SearchShows calls = %d, want 4 (year, year-1, year+1, none)", got)
	}
}

func TestResolveSearchTiesKeepFirst(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Search[testsupport.SearchKey("Show", 0)] = []catalog.SearchResult{
		{ID: 10, Name: "Show"},
		{ID: 11, Name: "Show"},
	}
	show := library.Show{Key: "1", Title: "Show"}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 10 {
		t.Fatalf("Resolve = %+v, want first tied candidate 10", res)
	}
}

func TestResolveStrippedQueryAndNoFloor(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Search[testsupport.SearchKey("The Office", 0)] = []catalog.SearchResult{{ID: 2316, Name: "Completely Different"}}
	show := library.Show{Key: "1", Title: "The Office (US)"}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CatalogID != 2316 || res.Source != identity.SourceAuto {
		t.Fatalf("Resolve = %+v, want poor-scoring sole candidate", res)
	}
}

func TestResolveUnavailableCatalogIsUnresolved(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Unavailable = true
	show := library.Show{Key: "1", Title: "Show", Year: 2020, Guids: []string{"imdb://tt1"}}

	res, err := newResolver(cat).Resolve(context.Background(), show, identity.Prior{CachedID: int64Ptr(3)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Resolved() || res.Source != identity.SourceNone {
		t.Fatalf("Resolve = %+v, want unresolved", res)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	cat.Search[testsupport.SearchKey("Show", 2020)] = []catalog.SearchResult{
		{ID: 7, Name: "Shows", FirstAirDate: "2020-01-01"},
		{ID: 8, Name: "Show", FirstAirDate: "2018-01-01"},
	}
	show := library.Show{Key: "1", Title: "Show", Year: 2020}
	resolver := newResolver(cat)

	first, _ := resolver.Resolve(context.Background(), show, identity.Prior{})
	second, _ := resolver.Resolve(context.Background(), show, identity.Prior{})
	if first != second {
		t.Fatalf("Resolve not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	cat := testsupport.NewFakeCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	show := library.Show{Key: "1", Title: "Show"}

	_, err := newResolver(cat).Resolve(ctx, show, identity.Prior{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Resolve error = %v, want context.Canceled", err)
	}
}
