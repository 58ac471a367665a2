package showcache

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Lunedor/plex-parity/internal/episode"
	"github.com/Lunedor/plex-parity/internal/library"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "show_cache.json"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func assertVisibleInvariant(t *testing.T, store *Store, key string) {
	t.Helper()
	entry, ok := store.Get(key)
	if !ok {
		t.Fatalf("entry %s missing", key)
	}
	want := VisibleMissing(entry.MissingRaw, entry.Ignored, entry.IgnoreAll)
	if !slices.Equal(entry.Missing, want) {
		t.Fatalf("visible missing = %v, want %v", entry.Missing, want)
	}
}

func TestVisibleMissing(t *testing.T) {
	raw := []string{"S01E03", "S01E01", "S01E02"}
	if got := VisibleMissing(raw, []string{"S01E02"}, false); !slices.Equal(got, []string{"S01E01", "S01E03"}) {
		t.Fatalf("VisibleMissing = %v", got)
	}
	got := VisibleMissing(raw, nil, true)
	if got == nil || len(got) != 0 {
		t.Fatalf("VisibleMissing with ignoreAll = %#v, want empty", got)
	}
}

func TestGetOrInitRefreshesIdentity(t *testing.T) {
	store := openStore(t)
	show := library.Show{Key: "10", Title: "Show", Year: 2020, Guids: []string{"tmdb://1"}}
	entry := store.GetOrInit(show)
	if entry.Signature != show.Signature() || entry.Missing == nil || entry.Ignored == nil {
		t.Fatalf("unexpected new entry %+v", entry)
	}

	if err := store.ApplyDiffResult("10", DiffResult{CatalogID: 1, Source: "local-hint", MissingRaw: []string{"S01E01"}}, time.Now()); err != nil {
		t.Fatalf("ApplyDiffResult: %v", err)
	}
	show.Title = "Show Renamed"
	entry = store.GetOrInit(show)
	if entry.Title != "Show Renamed" || entry.CatalogID == nil || *entry.CatalogID != 1 {
		t.Fatalf("GetOrInit lost state: %+v", entry)
	}
}

func TestApplyDiffResult(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "1", Title: "Show"})
	if err := store.SetEpisodeIgnore("1", "S01E02", true); err != nil {
		t.Fatalf("SetEpisodeIgnore: %v", err)
	}
	if err := store.SetManualOverride("1", nil); err != nil {
		t.Fatalf("SetManualOverride: %v", err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := store.ApplyDiffResult("1", DiffResult{
		CatalogID:   7,
		Source:      "auto",
		SecondaryID: "tt7",
		Status:      "Returning Series",
		MissingRaw:  []string{"S01E02", "S01E01", "S01E01"},
		Upcoming: []episode.Upcoming{
			{Date: "2024-06-08", Code: "S02E02"},
			{Date: "2024-06-01", Code: "S02E01"},
		},
	}, now)
	if err != nil {
		t.Fatalf("ApplyDiffResult: %v", err)
	}

	entry, _ := store.Get("1")
	if !slices.Equal(entry.MissingRaw, []string{"S01E01", "S01E02"}) {
		t.Fatalf("MissingRaw = %v", entry.MissingRaw)
	}
	if !slices.Equal(entry.Missing, []string{"S01E01"}) {
		t.Fatalf("Missing = %v", entry.Missing)
	}
	if entry.NextAir == nil || entry.NextAir.Code != "S02E01" {
		t.Fatalf("NextAir = %+v", entry.NextAir)
	}
	if entry.ForceRescan || !entry.LastScanAt.Equal(now) {
		t.Fatalf("control flags not updated: %+v", entry)
	}
	if err := store.ApplyDiffResult("nope", DiffResult{}, now); err != ErrUnknownShow {
		t.Fatalf("expected ErrUnknownShow, got %v", err)
	}
}

func TestIgnoreTogglesRecomputeVisible(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "1", Title: "Show"})
	_ = store.ApplyDiffResult("1", DiffResult{CatalogID: 1, MissingRaw: []string{"S01E01", "S01E02"}}, time.Now())

	steps := []func() error{
		func() error { return store.SetEpisodeIgnore("1", "s01e01", true) },
		func() error { return store.SetShowIgnoreAll("1", true) },
		func() error { return store.SetEpisodeIgnore("1", "S01E01", false) },
		func() error { return store.SetShowIgnoreAll("1", false) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertVisibleInvariant(t, store, "1")
	}

	entry, _ := store.Get("1")
	if !slices.Equal(entry.MissingRaw, []string{"S01E01", "S01E02"}) {
		t.Fatalf("raw missing mutated: %v", entry.MissingRaw)
	}
	if err := store.SetEpisodeIgnore("1", "bogus", true); err == nil {
		t.Fatal("expected invalid code error")
	}
}

func TestIgnoreAllHidesEverything(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "1", Title: "Show"})
	_ = store.ApplyDiffResult("1", DiffResult{CatalogID: 1, MissingRaw: []string{"S01E01"}}, time.Now())
	_ = store.SetShowIgnoreAll("1", true)

	entry, _ := store.Get("1")
	if len(entry.Missing) != 0 {
		t.Fatalf("Missing = %v, want empty", entry.Missing)
	}
}

func TestSetManualOverride(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "1", Title: "Show"})
	_ = store.ApplyDiffResult("1", DiffResult{CatalogID: 3, SecondaryID: "tt3", Status: "Ended", PosterURL: "p", MissingRaw: []string{"S01E01"}}, time.Now())

	id := int64(99)
	if err := store.SetManualOverride("1", &id); err != nil {
		t.Fatalf("SetManualOverride: %v", err)
	}
	entry, _ := store.Get("1")
	if entry.ManualID == nil || *entry.ManualID != 99 || !entry.ForceRescan {
		t.Fatalf("override not pinned: %+v", entry)
	}
	if entry.SecondaryID != "" || entry.Status != "" || entry.PosterURL != "" || len(entry.MissingRaw) != 0 {
		t.Fatalf("derived fields not cleared: %+v", entry)
	}

	id = 5
	if *entry.ManualID != 99 {
		t.Fatal("stored override aliases caller pointer")
	}

	if err := store.SetManualOverride("1", nil); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	entry, _ = store.Get("1")
	if entry.ManualID != nil || entry.CatalogID != nil || !entry.ForceRescan {
		t.Fatalf("override not cleared: %+v", entry)
	}
}

func TestAdvanceDueUpcoming(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "1", Title: "Show"})
	today := time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)
	_ = store.ApplyDiffResult("1", DiffResult{
		CatalogID: 1,
		Upcoming: []episode.Upcoming{
			{Date: "2024-06-01", Code: "S02E01"},
			{Date: "2024-06-03", Code: "S02E02"},
		},
	}, today)
	store.GetOrInit(library.Show{Key: "2", Title: "Quiet"})

	if changed := store.AdvanceDueUpcoming(today); changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}
	entry, _ := store.Get("1")
	if !slices.Equal(entry.MissingRaw, []string{"S02E01"}) || !slices.Equal(entry.Missing, []string{"S02E01"}) {
		t.Fatalf("missing = %v / %v", entry.MissingRaw, entry.Missing)
	}
	if len(entry.Upcoming) != 1 || entry.Upcoming[0].Code != "S02E02" {
		t.Fatalf("Upcoming = %+v", entry.Upcoming)
	}
	if entry.NextAir == nil || entry.NextAir.Code != "S02E02" {
		t.Fatalf("NextAir = %+v", entry.NextAir)
	}
	if changed := store.AdvanceDueUpcoming(today); changed != 0 {
		t.Fatalf("second advance changed = %d, want 0", changed)
	}
}

func TestRelabel(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "1", Title: "Show"})
	store.GetOrInit(library.Show{Key: "2", Title: "Pinned"})
	_ = store.ApplyDiffResult("1", DiffResult{CatalogID: 1, SecondaryID: "tt1", MissingRaw: []string{"S01E01"}}, time.Now())
	id := int64(2)
	_ = store.SetManualOverride("2", &id)
	_ = store.ApplyDiffResult("2", DiffResult{CatalogID: 2, Source: "manual", SecondaryID: "tt2"}, time.Now())

	changed := library.Show{Key: "1", Title: "Show", Guids: []string{"tmdb://8"}}
	if err := store.Relabel("1", changed); err != nil {
		t.Fatalf("Relabel: %v", err)
	}
	entry, _ := store.Get("1")
	if entry.CatalogID != nil || entry.SecondaryID != "" || len(entry.MissingRaw) != 0 || !entry.ForceRescan {
		t.Fatalf("unpinned entry not cleared: %+v", entry)
	}
	if entry.Signature != changed.Signature() {
		t.Fatalf("signature not refreshed")
	}

	if err := store.Relabel("2", library.Show{Key: "2", Title: "Pinned (US)"}); err != nil {
		t.Fatalf("Relabel: %v", err)
	}
	pinned, _ := store.Get("2")
	if pinned.CatalogID == nil || *pinned.CatalogID != 2 || pinned.SecondaryID != "tt2" || !pinned.ForceRescan {
		t.Fatalf("pinned entry should keep resolution: %+v", pinned)
	}
}

func TestSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "show_cache.json")
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.GetOrInit(library.Show{Key: "1", Title: "Show", Year: 2020})
	_ = store.ApplyDiffResult("1", DiffResult{CatalogID: 4, MissingRaw: []string{"S01E01"}}, time.Now().UTC().Truncate(time.Second))
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if entries, _ := os.ReadDir(filepath.Dir(path)); len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entry, ok := reopened.Get("1")
	if !ok || entry.CatalogID == nil || *entry.CatalogID != 4 || !slices.Equal(entry.Missing, []string{"S01E01"}) {
		t.Fatalf("reopened entry = %+v", entry)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show_cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOpenMigratesLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show_cache.json")
	legacy := `{
  "101": {
    "title": "Legacy Show",
    "year": 2015,
    "rating_key": "101",
    "plex_signature": "Legacy Show|2015|tmdb://55",
    "tmdb_id": 55,
    "imdb_id": "tt55",
    "tmdb_source": "local-hint",
    "manual_tmdb_id": "77",
    "status": "Ended",
    "missing": ["S01E02"],
    "next_air": {"date": "2030-01-01", "code": "S02E01"},
    "ignored_missing": ["S01E03"],
    "ignore_all_missing": false,
    "last_scan_at": "2024-03-01T10:00:00"
  },
  "102": {"year": 2000}
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (untitled records dropped)", store.Len())
	}
	entry, _ := store.Get("101")
	if entry.CatalogID == nil || *entry.CatalogID != 55 || entry.ManualID == nil || *entry.ManualID != 77 {
		t.Fatalf("ids not migrated: %+v", entry)
	}
	if entry.SecondaryID != "tt55" || entry.Source != "local-hint" || entry.Signature != "Legacy Show|2015|tmdb://55" {
		t.Fatalf("fields not migrated: %+v", entry)
	}
	if !slices.Equal(entry.MissingRaw, []string{"S01E02"}) || !slices.Equal(entry.Ignored, []string{"S01E03"}) {
		t.Fatalf("lists not migrated: %+v", entry)
	}
	if len(entry.Upcoming) != 1 || entry.NextAir == nil || entry.LastScanAt.IsZero() {
		t.Fatalf("upcoming/scan not migrated: %+v", entry)
	}

	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("reopened Len = %d", reopened.Len())
	}
}

func TestResultsAndIgnoredListing(t *testing.T) {
	store := openStore(t)
	store.GetOrInit(library.Show{Key: "2", Title: "beta"})
	store.GetOrInit(library.Show{Key: "1", Title: "Alpha"})
	_ = store.ApplyDiffResult("2", DiffResult{CatalogID: 2, MissingRaw: []string{"S01E01", "S01E02"}}, time.Now())
	_ = store.SetEpisodeIgnore("2", "S01E01", true)

	results := store.Results()
	if len(results) != 2 || results[0].Key != "1" || results[1].Key != "2" {
		t.Fatalf("Results order = %+v", results)
	}
	if results[0].Status != "Unknown" {
		t.Fatalf("unresolved status = %q", results[0].Status)
	}
	if !slices.Equal(results[1].Missing, []string{"S01E02"}) {
		t.Fatalf("Results missing = %v", results[1].Missing)
	}

	ignored := store.IgnoredEpisodes()
	if len(ignored) != 1 || ignored[0].Key != "2" || !slices.Equal(ignored[0].Codes, []string{"S01E01"}) {
		t.Fatalf("IgnoredEpisodes = %+v", ignored)
	}
}

func TestEntryPredicates(t *testing.T) {
	id := int64(1)
	ended := Entry{Status: "Ended", CatalogID: &id, SecondaryID: "tt1", Missing: []string{}}
	if ended.Active() || !ended.Terminal() || !ended.FullyResolved() {
		t.Fatalf("ended entry predicates wrong: %+v", ended)
	}
	ended.ForceRescan = true
	if !ended.Active() {
		t.Fatal("force rescan should make entry active")
	}
	if !(Entry{Status: "Returning Series", CatalogID: &id}).Active() {
		t.Fatal("ongoing show should be active")
	}
	if !(Entry{Status: "Canceled"}).Active() {
		t.Fatal("unresolved show should be active")
	}
}
