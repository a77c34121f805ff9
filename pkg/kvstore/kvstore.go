package kvstore

import "errors"

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Sublevel is an ordered keyed collection inside a Store, comparable to a
// leveldb sublevel. Values are opaque bytes; callers encode/decode JSON.
type Sublevel interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Put writes value under key, overwriting any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Iterate walks every key/value pair in key order. Returning false
	// from fn stops the walk early.
	Iterate(fn func(key string, value []byte) bool) error
	// Batch returns a write buffer whose puts and deletes commit
	// atomically on Write.
	Batch() Batch
}

// Batch buffers writes for a single atomic commit. Operations queued on a
// batch are not visible to readers until Write succeeds; if Write fails,
// none of them are applied.
type Batch interface {
	Put(key string, value []byte)
	Delete(key string)
	Write() error
}
