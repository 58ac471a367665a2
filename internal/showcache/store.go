package showcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Lunedor/plex-parity/internal/episode"
	"github.com/Lunedor/plex-parity/internal/fileutil"
	"github.com/Lunedor/plex-parity/internal/library"
	"github.com/Lunedor/plex-parity/internal/logging"
)

// DocumentVersion is the current on-disk layout version.
const DocumentVersion = 1

var (
	// ErrUnknownShow is returned for keys the cache does not hold.
	ErrUnknownShow = errors.New("show not in cache")
	// ErrInvalidCode is returned for episode codes that are not S##E##.
	ErrInvalidCode = errors.New("invalid episode code")
)

type document struct {
	Version int              `json:"version"`
	Shows   map[string]Entry `json:"shows"`
}

// DiffResult is what one show evaluation writes back.
type DiffResult struct {
	CatalogID   int64
	Source      string
	SecondaryID string
	Status      string
	PosterURL   string
	MissingRaw  []string
	Upcoming    []episode.Upcoming
}

// Store owns every show entry and their persistence.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry
}

// Open loads the cache document at path. A missing file yields an empty
// store; an unreadable one is an error so it is never silently overwritten.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "showcache"),
		entries: make(map[string]Entry),
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("show cache path is empty")
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the entry for key.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// Keys returns every cached key, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Remove deletes key and reports whether it existed.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// GetOrInit returns the entry for show, creating it on first sight. Title,
// year and signature are always refreshed from the live record.
func (s *Store) GetOrInit(show library.Show) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[show.Key]
	if !ok {
		entry = Entry{Missing: []string{}, Ignored: []string{}}
	}
	entry.Title = show.Title
	entry.Year = show.Year
	entry.Signature = show.Signature()
	s.entries[show.Key] = entry
	return entry.clone()
}

// Relabel records that the live record behind key changed identity. Title,
// year and signature are refreshed; unless a manual override is pinned the
// resolution and diff fields are cleared. A rescan is always forced.
func (s *Store) Relabel(key string, show library.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ErrUnknownShow
	}
	entry.Title = show.Title
	entry.Year = show.Year
	entry.Signature = show.Signature()
	if !entry.Pinned() {
		entry.clearDerived()
	}
	entry.ForceRescan = true
	s.entries[key] = entry
	return nil
}

// ApplyDiffResult writes resolution and diff fields, recomputes the visible
// missing list, clears the rescan flag, and stamps the scan time.
func (s *Store) ApplyDiffResult(key string, result DiffResult, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ErrUnknownShow
	}
	id := result.CatalogID
	entry.CatalogID = &id
	entry.Source = result.Source
	entry.SecondaryID = result.SecondaryID
	entry.Status = result.Status
	entry.PosterURL = result.PosterURL
	entry.MissingRaw = episode.SortCodes(result.MissingRaw)
	entry.Upcoming = episode.SortUpcoming(result.Upcoming)
	entry.NextAir = nil
	if len(entry.Upcoming) > 0 {
		next := entry.Upcoming[0]
		entry.NextAir = &next
	}
	entry.recompute()
	entry.ForceRescan = false
	entry.LastScanAt = now
	s.entries[key] = entry
	return nil
}

// MarkScanned stamps the scan time without touching anything else.
func (s *Store) MarkScanned(key string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ErrUnknownShow
	}
	entry.LastScanAt = now
	s.entries[key] = entry
	return nil
}

// SetManualOverride pins id as the show's catalog id, or removes the pin when
// id is nil. Either way derived fields are cleared and a rescan is forced; a
// follow-up single-show refresh repopulates them.
func (s *Store) SetManualOverride(key string, id *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ErrUnknownShow
	}
	entry.clearDerived()
	entry.ManualID = clonePtr(id)
	if id != nil {
		entry.CatalogID = clonePtr(id)
		entry.Source = "manual"
	}
	entry.ForceRescan = true
	s.entries[key] = entry
	return nil
}

// SetEpisodeIgnore adds or removes code from the show's ignore set.
func (s *Store) SetEpisodeIgnore(key, code string, ignore bool) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !episode.ValidCode(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ErrUnknownShow
	}
	ignored := slices.DeleteFunc(slices.Clone(entry.Ignored), func(c string) bool { return c == code })
	if ignore {
		ignored = append(ignored, code)
	}
	entry.Ignored = episode.SortCodes(ignored)
	if entry.Ignored == nil {
		entry.Ignored = []string{}
	}
	entry.recompute()
	s.entries[key] = entry
	return nil
}

// SetShowIgnoreAll toggles the whole-show ignore flag.
func (s *Store) SetShowIgnoreAll(key string, ignore bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return ErrUnknownShow
	}
	entry.IgnoreAll = ignore
	entry.recompute()
	s.entries[key] = entry
	return nil
}

// AdvanceDueUpcoming moves every upcoming item dated today or earlier into the
// raw missing list, using only stored air dates. It returns the number of
// entries changed.
func (s *Store) AdvanceDueUpcoming(today time.Time) int {
	today = episode.DateOf(today)
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for key, entry := range s.entries {
		if len(entry.Upcoming) == 0 {
			continue
		}
		var due []string
		remaining := make([]episode.Upcoming, 0, len(entry.Upcoming))
		for _, item := range entry.Upcoming {
			date, ok := episode.ParseDate(item.Date)
			if ok && !date.After(today) {
				due = append(due, item.Code)
				continue
			}
			remaining = append(remaining, item)
		}
		if len(due) == 0 {
			continue
		}
		entry.MissingRaw = episode.SortCodes(append(slices.Clone(entry.MissingRaw), due...))
		entry.Upcoming = episode.SortUpcoming(remaining)
		entry.NextAir = nil
		if len(entry.Upcoming) > 0 {
			next := entry.Upcoming[0]
			entry.NextAir = &next
		}
		entry.recompute()
		s.entries[key] = entry
		changed++
	}
	if changed > 0 {
		s.logger.Debug("advanced due upcoming episodes", logging.Int("shows", changed))
	}
	return changed
}

// Save writes the whole document atomically.
func (s *Store) Save() error {
	s.mu.RLock()
	doc := document{Version: DocumentVersion, Shows: make(map[string]Entry, len(s.entries))}
	for key, entry := range s.entries {
		doc.Shows[key] = entry
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal show cache: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save show cache: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read show cache: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var probe struct {
		Version int             `json:"version"`
		Shows   json.RawMessage `json:"shows"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("parse show cache: %w", err)
	}

	if probe.Version > 0 && probe.Shows != nil {
		if probe.Version > DocumentVersion {
			return fmt.Errorf("show cache version %d is newer than supported %d", probe.Version, DocumentVersion)
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse show cache: %w", err)
		}
		for key, entry := range doc.Shows {
			if entry.Missing == nil {
				entry.Missing = []string{}
			}
			if entry.Ignored == nil {
				entry.Ignored = []string{}
			}
			s.entries[key] = entry
		}
	} else {
		if err := s.migrate(data); err != nil {
			return err
		}
	}

	s.logger.Debug("loaded show cache",
		logging.Int("entry_count", len(s.entries)),
		logging.String("path", s.path),
	)
	return nil
}

func (s *Store) migrate(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse legacy show cache: %w", err)
	}
	for key, value := range raw {
		var legacy legacyEntry
		if err := json.Unmarshal(value, &legacy); err != nil || strings.TrimSpace(legacy.Title) == "" {
			continue
		}
		s.entries[key] = legacy.migrate()
	}
	s.logger.Info("migrated legacy show cache",
		logging.String(logging.FieldEventType, "showcache_migrated"),
		logging.Int("entry_count", len(s.entries)),
	)
	return nil
}
