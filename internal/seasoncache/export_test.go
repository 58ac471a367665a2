package seasoncache

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/Lunedor/plex-parity/internal/catalog"
)

// PutRaw stores a catalog season without compacting it, the shape older
// releases wrote. The next Episodes call for that key compacts and re-stores it.
func (c *Cache) PutRaw(catalogID int64, season int, token string, detail *catalog.SeasonDetail) error {
	episodes, err := json.Marshal(detail.Episodes)
	if err != nil {
		return fmt.Errorf("marshal episodes: %w", err)
	}
	data, err := json.Marshal(record{Episodes: episodes})
	if err != nil {
		return fmt.Errorf("marshal season record: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeasons).Put([]byte(Key(catalogID, season, token)), data)
	})
}
