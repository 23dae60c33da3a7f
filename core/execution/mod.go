// Package execution defines the primitives to run a transaction against a
// snapshot of the store.
package execution

import (
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
)

// Step is the context of a transaction execution.
type Step struct {
	// Previous is the list of transactions executed before the current one in
	// the same block.
	Previous []txn.Transaction

	// Current is the transaction to execute.
	Current txn.Transaction

	// Time is the trusted time of the block in unix seconds. It is set by the
	// ledger and never by the caller.
	Time int64

	// Index is the index of the block being built.
	Index uint64
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string

	// Err is the error that made the transaction fail, if any.
	Err error
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
