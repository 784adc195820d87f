package kvstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("records")

const (
	boltOpenTimeout  = time.Second
	compactTxMaxSize = 1 << 16
)

// compactMinFree is the free space, in bytes, below which Compact is a no-op.
var compactMinFree = 4 << 20

// openDB opens and checks a bolt file. Tests replace it to simulate a file
// that cannot be reopened.
var openDB = openBoltDB

// Bolt is a Backend stored in a single bbolt file.
type Bolt struct {
	path string

	mu sync.RWMutex // guards db across compaction
	db *bolt.DB
}

// BoltOpener opens <Dir>/<Name>.db.
type BoltOpener struct {
	Dir  string
	Name string
}

func (o BoltOpener) path() string { return filepath.Join(o.Dir, o.Name+".db") }

func (o BoltOpener) String() string { return o.path() }

func (o BoltOpener) Open(_ context.Context) (_ Backend, err error) {
	// bbolt panics on some kinds of page corruption
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open %s: corrupt database: %v", o.path(), r)
		}
	}()
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := openDB(o.path())
	if err != nil {
		return nil, err
	}
	return &Bolt{path: o.path(), db: db}, nil
}

func (o BoltOpener) Reset(_ context.Context) error {
	if err := os.Remove(o.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func openBoltDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		// walks every page so a damaged file fails at open
		_ = b.Stats()
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return db, nil
}

func encodeKey(key uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], key)
	return k[:]
}

func (b *Bolt) view(fn func(bk *bolt.Bucket) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}
	return b.db.View(func(tx *bolt.Tx) error { return fn(tx.Bucket(bucketName)) })
}

func (b *Bolt) update(fn func(bk *bolt.Bucket) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}
	return b.db.Update(func(tx *bolt.Tx) error { return fn(tx.Bucket(bucketName)) })
}

func (b *Bolt) Get(_ context.Context, key uint32) ([]byte, error) {
	var out []byte
	err := b.view(func(bk *bolt.Bucket) error {
		v := bk.Get(encodeKey(key))
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (b *Bolt) Put(_ context.Context, key uint32, val []byte) error {
	return b.update(func(bk *bolt.Bucket) error { return bk.Put(encodeKey(key), val) })
}

func (b *Bolt) Delete(_ context.Context, key uint32) error {
	return b.update(func(bk *bolt.Bucket) error { return bk.Delete(encodeKey(key)) })
}

func (b *Bolt) ForEach(ctx context.Context, fn func(key uint32, val []byte) error) error {
	return b.view(func(bk *bolt.Bucket) error {
		return bk.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(k) != 4 {
				return nil
			}
			return fn(binary.BigEndian.Uint32(k), v)
		})
	})
}

func (b *Bolt) Len(_ context.Context) (int, error) {
	n := 0
	err := b.view(func(bk *bolt.Bucket) error {
		n = bk.Stats().KeyN
		return nil
	})
	return n, err
}

// Compact rewrites the file when enough space has been freed by deletes.
func (b *Bolt) Compact(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return ErrClosed
	}
	if b.db.Stats().FreeAlloc < compactMinFree {
		return nil
	}

	tmp := b.path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return fmt.Errorf("open compaction target: %w", err)
	}
	if err := bolt.Compact(dst, b.db, compactTxMaxSize); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("compact %s: %w", b.path, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := b.db.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	b.db = nil

	// The original file is kept aside until the compacted copy opens.
	old := b.path + ".old"
	if err := os.Rename(b.path, old); err != nil {
		_ = os.Remove(tmp)
		return b.reopen(fmt.Errorf("move %s aside: %w", b.path, err))
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Rename(old, b.path)
		return b.reopen(fmt.Errorf("swap compacted file: %w", err))
	}
	db, err := openDB(b.path)
	if err != nil {
		_ = os.Rename(old, b.path)
		return b.reopen(fmt.Errorf("open compacted %s: %w", b.path, err))
	}
	_ = os.Remove(old)
	b.db = db
	return nil
}

// reopen restores b.db from b.path after a failed swap and returns cause.
// If the file cannot be opened either, the backend is unusable. Caller holds
// b.mu.
func (b *Bolt) reopen(cause error) error {
	db, err := openDB(b.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v (after %v)", ErrUnusable, b.path, err, cause)
	}
	b.db = db
	return cause
}

func (b *Bolt) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
