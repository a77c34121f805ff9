package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

const (
	// fileMode sets permissions so only the owner can read and write.
	fileMode       = 0600
	defaultTimeout = 1 * time.Second
)

// Store is a BoltDB-backed keyed store. Each Sublevel maps to one bolt
// bucket, created on first use.
type Store struct {
	db   *bolt.DB
	Path string
}

// Open opens (or creates) the bolt database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	return &Store{db: db, Path: path}, nil
}

// Close closes the underlying bolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sublevel returns the named sublevel, creating its bucket if missing.
func (s *Store) Sublevel(name string) (Sublevel, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %q: %w", name, err)
	}
	return &boltSublevel{db: s.db, bucket: []byte(name)}, nil
}

type boltSublevel struct {
	db     *bolt.DB
	bucket []byte
}

func (b *boltSublevel) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(key))
		if v == nil {
			return ErrKeyNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *boltSublevel) Put(key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), value)
	})
}

func (b *boltSublevel) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

func (b *boltSublevel) Iterate(fn func(key string, value []byte) bool) error {
	return b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(b.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(string(k), v) {
				return nil
			}
		}
		return nil
	})
}

func (b *boltSublevel) Batch() Batch {
	return &boltBatch{sub: b}
}

type batchOp struct {
	key    string
	value  []byte // nil means delete
	delete bool
}

type boltBatch struct {
	sub *boltSublevel
	ops []batchOp
}

func (b *boltBatch) Put(key string, value []byte) {
	b.ops = append(b.ops, batchOp{key: key, value: value})
}

func (b *boltBatch) Delete(key string) {
	b.ops = append(b.ops, batchOp{key: key, delete: true})
}

// Write commits every queued operation in one bolt transaction.
func (b *boltBatch) Write() error {
	return b.sub.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.sub.bucket)
		for _, op := range b.ops {
			if op.delete {
				if err := bucket.Delete([]byte(op.key)); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put([]byte(op.key), op.value); err != nil {
				return err
			}
		}
		return nil
	})
}
