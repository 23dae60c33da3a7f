// Package store defines the key/value store on which the contracts execute.
package store

// Readable is a store that can be read. The global state of the ledger is
// exposed as a Readable to the queries.
type Readable interface {
	// Get returns the value of the key, or nil if it is not set.
	Get(key []byte) ([]byte, error)
}

// Writable is a store that can be written.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Snapshot is a view of the store that a transaction reads and writes. Its
// writes are visible only through the snapshot until they are applied.
type Snapshot interface {
	Readable
	Writable
}

// Transaction is implemented by the stores that write atomically.
type Transaction interface {
	// OnCommit registers a callback that runs once the transaction is
	// committed, and never if it is rolled back.
	OnCommit(func())
}
