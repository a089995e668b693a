package geo

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/dgraph-io/badger/v4"
)

// DiskCache persists resolved points across restarts so a warm process does
// not hit the GeoIP database for addresses it has already seen.
type DiskCache struct {
	db *badger.DB
}

func OpenDiskCache(path string) (*DiskCache, error) {
	opts := badger.DefaultOptions(path)
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo cache %s: %w", path, err)
	}
	return &DiskCache{db: db}, nil
}

func (c *DiskCache) Close() error {
	return c.db.Close()
}

func cacheKey(ip net.IP) ([]byte, error) {
	key := ip.To16()
	if key == nil {
		return nil, fmt.Errorf("invalid IP %v", ip)
	}
	return []byte(key), nil
}

func (c *DiskCache) Get(ip net.IP) (Point, bool, error) {
	key, err := cacheKey(ip)
	if err != nil {
		return Point{}, false, err
	}
	var val []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return Point{}, false, nil
	}
	if err != nil {
		return Point{}, false, err
	}

	var p Point
	if err := json.Unmarshal(val, &p); err != nil {
		return Point{}, false, fmt.Errorf("corrupt geo cache entry for %v: %w", ip, err)
	}
	return p, true, nil
}

func (c *DiskCache) Put(ip net.IP, p Point) error {
	key, err := cacheKey(ip)
	if err != nil {
		return err
	}
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Len counts the persisted entries.
func (c *DiskCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
