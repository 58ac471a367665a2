package seasoncache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Lunedor/plex-parity/internal/catalog"
	"github.com/Lunedor/plex-parity/internal/episode"
	"github.com/Lunedor/plex-parity/internal/logging"
)

// NoToken is the freshness token used when the catalog reports no air dates.
const NoToken = "none"

var bucketSeasons = []byte("seasons")

// SeasonFetcher loads a season from the catalog on a cache miss.
type SeasonFetcher interface {
	SeasonDetail(ctx context.Context, id int64, season int) (*catalog.SeasonDetail, error)
}

// record is the stored value. Compact is false for values written in the raw
// catalog shape, which are compacted on next read.
type record struct {
	Episodes json.RawMessage `json:"episodes"`
	Compact  bool            `json:"compact"`
}

// Cache is a bbolt-backed season episode cache.
type Cache struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("season cache path is empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create season cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open season cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSeasons)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init season cache: %w", err)
	}
	return &Cache{db: db, logger: logging.NewComponentLogger(logger, "seasoncache")}, nil
}

// Close releases the database file.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key builds the composite lookup key.
func Key(catalogID int64, season int, token string) string {
	return strconv.FormatInt(catalogID, 10) + "/" + strconv.Itoa(season) + "/" + token
}

// Token derives the freshness token from show detail: last_air_date, then
// the last aired episode's date, then NoToken.
func Token(detail *catalog.ShowDetail) string {
	if detail == nil {
		return NoToken
	}
	if token := strings.TrimSpace(detail.LastAirDate); token != "" {
		return token
	}
	if detail.LastEpisodeToAir != nil {
		if token := strings.TrimSpace(detail.LastEpisodeToAir.AirDate); token != "" {
			return token
		}
	}
	return NoToken
}

// Episodes returns the compacted episode list for a season, fetching on a
// miss. The second value is false when the season could not be loaded; in that
// case nothing is stored and callers should skip the season.
func (c *Cache) Episodes(ctx context.Context, catalogID int64, season int, token string, fetcher SeasonFetcher) ([]episode.Aired, bool) {
	key := Key(catalogID, season, token)
	logger := c.logger.With(
		logging.Int64(logging.FieldCatalogID, catalogID),
		logging.Int("season", season),
	)

	if aired, ok := c.lookup(key, logger); ok {
		return aired, true
	}

	detail, err := fetcher.SeasonDetail(ctx, catalogID, season)
	if err != nil {
		logger.Debug("season fetch failed", logging.Error(err))
		return nil, false
	}
	if detail == nil {
		logger.Debug("season fetch returned no data")
		return nil, false
	}

	aired := Compact(detail.Episodes, logger)
	if err := c.store(key, aired); err != nil {
		logging.WarnWithContext(logger, "season cache write failed", "seasoncache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "season will be fetched again next time"),
		)
	}
	return aired, true
}

func (c *Cache) lookup(key string, logger *slog.Logger) ([]episode.Aired, bool) {
	var data []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSeasons).Get([]byte(key)); v != nil {
			data = bytes.Clone(v)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Debug("discarding unreadable season cache entry", logging.Error(err))
		return nil, false
	}

	if rec.Compact {
		var aired []episode.Aired
		if err := json.Unmarshal(rec.Episodes, &aired); err == nil {
			compacted := compactAired(aired)
			if slices.Equal(compacted, aired) {
				return aired, true
			}
			c.restore(key, compacted, logger)
			return compacted, true
		}
	}

	var raw []catalog.Episode
	if err := json.Unmarshal(rec.Episodes, &raw); err != nil {
		logger.Debug("discarding unreadable season cache entry", logging.Error(err))
		return nil, false
	}
	compacted := Compact(raw, logger)
	c.restore(key, compacted, logger)
	return compacted, true
}

func (c *Cache) restore(key string, aired []episode.Aired, logger *slog.Logger) {
	if err := c.store(key, aired); err != nil {
		logger.Debug("season cache re-compaction not persisted", logging.Error(err))
	}
}

func (c *Cache) store(key string, aired []episode.Aired) error {
	if aired == nil {
		aired = []episode.Aired{}
	}
	episodes, err := json.Marshal(aired)
	if err != nil {
		return fmt.Errorf("marshal episodes: %w", err)
	}
	data, err := json.Marshal(record{Episodes: episodes, Compact: true})
	if err != nil {
		return fmt.Errorf("marshal season record: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeasons).Put([]byte(key), data)
	})
}

// Prune deletes every entry for catalogID whose token differs from keepToken
// and returns the number removed.
func (c *Cache) Prune(catalogID int64, keepToken string) (int, error) {
	prefix := []byte(strconv.FormatInt(catalogID, 10) + "/")
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSeasons)
		var stale [][]byte
		cursor := bucket.Cursor()
		for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
			parts := strings.SplitN(string(k[len(prefix):]), "/", 2)
			if len(parts) == 2 && parts[1] != keepToken {
				stale = append(stale, bytes.Clone(k))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune season cache: %w", err)
	}
	if removed > 0 {
		c.logger.Debug("pruned stale seasons",
			logging.Int64(logging.FieldCatalogID, catalogID),
			logging.Int("removed", removed),
		)
	}
	return removed, nil
}

// Len returns the number of stored season entries.
func (c *Cache) Len() int {
	count := 0
	_ = c.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketSeasons).Stats().KeyN
		return nil
	})
	return count
}

// Compact reduces catalog episodes to (number, air date) pairs: records with a
// non-positive or malformed number or an invalid date are dropped, the rest
// sorted by number with the first occurrence of each number kept.
func Compact(episodes []catalog.Episode, logger *slog.Logger) []episode.Aired {
	out := make([]episode.Aired, 0, len(episodes))
	for _, ep := range episodes {
		number, ok := ep.EpisodeNumber.Int()
		if !ok || number <= 0 {
			continue
		}
		if _, ok := episode.ParseDate(ep.AirDate); !ok {
			if logger != nil && strings.TrimSpace(ep.AirDate) != "" {
				logger.Debug("skipping malformed air date",
					logging.Int("episode", number),
					logging.String("air_date", ep.AirDate),
				)
			}
			continue
		}
		out = append(out, episode.Aired{Episode: number, AirDate: ep.AirDate})
	}
	return compactAired(out)
}

func compactAired(aired []episode.Aired) []episode.Aired {
	out := make([]episode.Aired, 0, len(aired))
	for _, a := range aired {
		if a.Episode <= 0 {
			continue
		}
		if _, ok := episode.ParseDate(a.AirDate); !ok {
			continue
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b episode.Aired) int {
		return a.Episode - b.Episode
	})
	return slices.CompactFunc(out, func(a, b episode.Aired) bool {
		return a.Episode == b.Episode
	})
}
