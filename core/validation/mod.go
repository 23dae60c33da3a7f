// Package validation defines the validator of the transactions of a block.
//
// The validator makes sure a transaction is signed by its identity and that it
// has never been executed before. It then runs the transaction and keeps its
// updates only if the execution accepted it.
package validation

import (
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/serde"
)

// TransactionResult is the outcome of a transaction in a block.
type TransactionResult interface {
	GetTransaction() txn.Transaction

	// GetStatus returns true if the transaction has been accepted, otherwise
	// false with the reason.
	GetStatus() (bool, string)

	// GetError returns the error that made the transaction refused, or nil.
	GetError() error
}

// Result is the result of a validation.
type Result interface {
	serde.Fingerprinter

	GetTransactionResults() []TransactionResult
}

// Header is the context of the block being validated.
type Header struct {
	Index uint64
	Time  int64
}

// Service is the validation service that will process a batch of transactions
// into a validated result that can be used as a payload of a block.
type Service interface {
	// Validate processes the transactions one after the other while updating
	// the snapshot.
	Validate(snap store.Snapshot, header Header, txs []txn.Transaction) (Result, error)

	// GetNonce returns the next nonce of the identity.
	GetNonce(store.Readable, access.Identity) (uint64, error)
}
