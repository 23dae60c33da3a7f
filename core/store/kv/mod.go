// Package kv defines the key/value database of the node and its bbolt
// implementation (https://github.com/etcd-io/bbolt).
//
// The ledger keeps the global state and the blocks in their own buckets, and
// the election indexer keeps the creation order of the elections in another
// one, all in the same file.
package kv

import "go.dedis.ch/ballot/core/store"

// Bucket is a named set of keys in the database.
type Bucket interface {
	// Get returns the value of the key, or nil when it is not set. The value is
	// only valid during the transaction.
	Get(key []byte) []byte

	Set(key, value []byte) error

	Delete(key []byte) error

	// ForEach calls fn for each key of the bucket in byte order, and stops at
	// the first error.
	ForEach(fn func(k, v []byte) error) error

	// Scan calls fn for each key that starts with the prefix in byte order,
	// and stops at the first error.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// ReadableTx is a read-only transaction. Several of them can run at the same
// time.
type ReadableTx interface {
	// GetBucket returns the bucket, or nil if it has never been created.
	GetBucket(name []byte) Bucket
}

// WritableTx is a read-write transaction. Only one of them runs at a time and
// its changes are applied atomically.
type WritableTx interface {
	store.Transaction
	ReadableTx

	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is the key/value database. A transaction is rolled back when its function
// returns an error, which is then returned.
type DB interface {
	View(fn func(ReadableTx) error) error

	Update(fn func(WritableTx) error) error

	Close() error
}
