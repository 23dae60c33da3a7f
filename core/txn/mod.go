// Package txn defines the transactions submitted to the ledger.
//
// A transaction carries the arguments of a contract, like the command and the
// election of a vote. It is signed by an identity and its nonce is the
// sequence number of the identity, so that two transactions of the same voter
// never share an identifier.
package txn

import (
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/serde"
)

// Transaction is the input of a contract execution.
type Transaction interface {
	serde.Message
	serde.Fingerprinter

	// GetID returns the digest of the transaction.
	GetID() []byte

	GetNonce() uint64

	// GetIdentity returns the identity that signed the transaction. For a
	// vote, it is the voter.
	GetIdentity() access.Identity

	// GetArg returns the value of the argument, or nil if it is not set.
	GetArg(key string) []byte
}

// Factory decodes transactions, for instance the ones submitted over HTTP.
type Factory interface {
	serde.Factory

	TransactionOf(serde.Context, []byte) (Transaction, error)
}

// Arg is an argument of a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager creates the transactions of a single identity.
type Manager interface {
	// Make returns a new signed transaction with the next nonce.
	Make(args ...Arg) (Transaction, error)

	// Sync reads the next nonce of the identity from the ledger.
	Sync() error
}
