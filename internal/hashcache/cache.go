// Package hashcache provides a persistent, self-cleaning cache of
// per-file digests (partial hash, full hash, or perceptual hash) keyed
// on path, size, modification time, phase and byte range, so a repeat cerebro run over
// an unchanged tree never re-reads file content it already hashed.
//
// Adapted from the teacher's internal/cache, generalized from a single
// head/tail/chunk verification cache into one shared by every hashing
// stage: the key now includes a phase tag (partial/full/visual) so the
// same BoltDB file can serve all three without collisions.
package hashcache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "digests"

// Cache provides persistent caching of file digests using BoltDB.
// Self-cleaning: each run creates a new database; only entries looked up
// or stored this run survive the close-time swap.
type Cache struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	enabled bool
}

// Open opens the existing cache for reading and creates a new cache file
// for writing. Returns a disabled (no-op) Cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}

	if _, statErr := os.Stat(path); statErr == nil {
		readDB, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
		if err == nil {
			c.readDB = readDB
		}
	}

	newPath := path + ".new"
	writeDB, err := bolt.Open(newPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}
	c.writeDB = writeDB

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces the old cache file
// with the new one, but only if the write database closed cleanly.
func (c *Cache) Close() error {
	var firstErr error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if c.path != "" {
			if err := os.Rename(c.path+".new", c.path); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Key identifies one cached digest: a specific file, at a specific
// modification time, for a specific hashing phase and byte range.
type Key struct {
	Path    string
	Size    int64
	ModTime time.Time
	Phase   string // "partial", "full", or "visual"
	Start   int64
	Length  int64
}

const keyVersion byte = 1

func (k Key) bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(k.Path)
	buf.WriteByte(0)
	buf.WriteString(k.Phase)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, k.Size)
	_ = binary.Write(buf, binary.BigEndian, k.ModTime.UnixNano())
	_ = binary.Write(buf, binary.BigEndian, k.Start)
	_ = binary.Write(buf, binary.BigEndian, k.Length)
	return buf.Bytes()
}

// Lookup retrieves a cached digest. Returns (nil, nil) on a clean miss.
// On hit, the entry is copied into the write database (self-cleaning).
func (c *Cache) Lookup(key Key) ([]byte, error) {
	if !c.enabled || c.readDB == nil {
		return nil, nil
	}

	var digest []byte
	err := c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if data := b.Get(key.bytes()); data != nil {
			digest = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if digest == nil {
		return nil, nil
	}

	_ = c.Store(key, digest)
	return digest, nil
}

// Store saves a digest for key into the write database.
func (c *Cache) Store(key Key, digest []byte) error {
	if !c.enabled || c.writeDB == nil || len(digest) == 0 {
		return nil
	}
	err := c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(key.bytes(), digest)
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
