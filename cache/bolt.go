package cache

import (
	"encoding/binary"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"github.com/qcount/quantityer/qerr"
)

// Mode controls how Open treats the backing file, mirroring the
// read/write/update/new modes of §4.6.
type Mode int

const (
	// ModeRead opens an existing file for lookups only; writes are
	// buffered in memory and never flushed back.
	ModeRead Mode = iota
	// ModeWrite creates a fresh file, discarding any existing contents.
	ModeWrite
	// ModeUpdate opens an existing file and writes new entries back to it.
	ModeUpdate
	// ModeNew creates the file if absent, otherwise behaves like ModeUpdate.
	ModeNew
)

var bucketName = []byte("counts")

// Bolt is a go.etcd.io/bbolt-backed persistent cache. Writes are buffered
// in an in-memory overlay and only committed to the database file on Sync
// (or Close), so a long run that crashes mid-way does not leave a
// half-written bucket.
type Bolt struct {
	db       *bbolt.DB
	mode     Mode
	buffered map[string]int
	dirty    map[string]bool
}

// Open opens (or creates) path as a persistent cache under mode.
func Open(path string, mode Mode) (*Bolt, error) {
	if mode == ModeWrite {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, &qerr.FileError{Path: path, Err: err}
		}
	}
	if mode == ModeRead || mode == ModeUpdate {
		if _, err := os.Stat(path); err != nil {
			return nil, &qerr.FileError{Path: path, Err: err}
		}
	}

	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, &qerr.FileError{Path: path, Err: err}
	}
	if mode != ModeRead {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
		if err != nil {
			db.Close()
			return nil, &qerr.FileError{Path: path, Err: err}
		}
	}

	b := &Bolt{
		db:       db,
		mode:     mode,
		buffered: make(map[string]int),
		dirty:    make(map[string]bool),
	}
	if err := b.preload(); err != nil {
		db.Close()
		return nil, &qerr.FileError{Path: path, Err: err}
	}
	return b, nil
}

func (b *Bolt) preload() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			b.buffered[string(k)] = decodeCount(v)
			return nil
		})
	})
}

func (c *Bolt) Get(key string) (int, bool) {
	v, ok := c.buffered[key]
	return v, ok
}

func (c *Bolt) Contains(key string) bool {
	_, ok := c.buffered[key]
	return ok
}

func (c *Bolt) Put(key string, count int) error {
	c.buffered[key] = count
	if c.mode != ModeRead {
		c.dirty[key] = true
	}
	return nil
}

func (c *Bolt) Update(other Cache) error {
	for _, k := range other.Keys() {
		v, ok := other.Get(k)
		if !ok {
			continue
		}
		if err := c.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Bolt) Reset() error {
	c.buffered = make(map[string]int)
	if c.mode == ModeRead {
		return nil
	}
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
	c.dirty = make(map[string]bool)
	if err != nil {
		return &qerr.EngineError{Msg: fmt.Sprintf("cache: reset: %v", err)}
	}
	return nil
}

// Sync flushes every buffered write accumulated since the last Sync to the
// database file. A no-op in ModeRead.
func (c *Bolt) Sync() error {
	if c.mode == ModeRead || len(c.dirty) == 0 {
		return nil
	}
	err := c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for key := range c.dirty {
			if err := bucket.Put([]byte(key), encodeCount(c.buffered[key])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &qerr.EngineError{Msg: fmt.Sprintf("cache: sync: %v", err)}
	}
	c.dirty = make(map[string]bool)
	return nil
}

func (c *Bolt) Close() error {
	if err := c.Sync(); err != nil {
		return err
	}
	return c.db.Close()
}

func (c *Bolt) Len() int { return len(c.buffered) }

func (c *Bolt) Keys() []string {
	out := make([]string, 0, len(c.buffered))
	for k := range c.buffered {
		out = append(out, k)
	}
	return out
}

func encodeCount(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeCount(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
