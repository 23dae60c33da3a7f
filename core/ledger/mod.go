// Package ledger defines the append-only ledger of the node.
//
// The ledger is a single writer: every transaction goes through one queue and
// one goroutine executes them in blocks, each block being committed in a
// single database transaction. The readers see the state of the last
// committed block.
package ledger

import (
	"context"

	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/ledger/types"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
)

// Receipt is the outcome of a submitted transaction.
type Receipt struct {
	// Index is the index of the block that contains the transaction.
	Index uint64

	// Time is the trusted time of the block in unix seconds.
	Time int64

	// Accepted is true when the updates of the transaction have been
	// committed.
	Accepted bool

	// Message is the reason of a refusal.
	Message string

	// Err is the error of a refusal.
	Err error
}

// Event is the event of a new committed block.
type Event struct {
	Block types.Block
}

// Status is the status of the ledger.
type Status struct {
	// Index is the index of the latest block, or zero if none.
	Index uint64

	// Time is the time of the latest block in unix seconds.
	Time int64

	// Hash is the digest of the latest block.
	Hash []byte
}

// Ledger is the interface of the ledger exposed to the contracts clients.
type Ledger interface {
	// Submit sends the transaction to the ledger and waits for its receipt.
	// The transaction might still be executed if the context is done before
	// the receipt is available.
	Submit(ctx context.Context, tx txn.Transaction) (Receipt, error)

	// View runs the function with a read-only view of the latest state.
	View(fn func(store.Readable) error) error

	// GetNonce returns the next nonce of the identity.
	GetNonce(ident access.Identity) (uint64, error)

	// GetBlock returns the block at the index.
	GetBlock(index uint64) (types.Block, error)

	// GetStatus returns the status of the ledger.
	GetStatus() Status

	// Watch returns a channel populated with the new blocks until the context
	// is done.
	Watch(ctx context.Context) <-chan Event
}
