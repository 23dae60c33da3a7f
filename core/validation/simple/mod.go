// Package simple implements a simple validation service.
package simple

import (
	"encoding/binary"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/mem"
	"go.dedis.ch/ballot/core/store/prefixed"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/crypto"
	"golang.org/x/xerrors"
)

// namespace is the prefix of the keys written by the validation service so
// that they never collide with the ones of the contracts.
const namespace = "go.dedis.ch/ballot.validation"

var (
	nonceTag = []byte("nonce:")
	txTag    = []byte("tx:")
)

// verifiable is implemented by the transactions that carry a signature.
type verifiable interface {
	Verify() error
}

// Service is a standard validation service that will process the batch and
// update the snapshot accordingly.
//
// - implements validation.Service
type Service struct {
	execution execution.Service
	hashFac   crypto.HashFactory
}

// NewService creates a new validation service.
func NewService(exec execution.Service) Service {
	return Service{
		execution: exec,
		hashFac:   crypto.NewHashFactory(crypto.Sha256),
	}
}

// GetNonce implements validation.Service. It returns the next nonce of the
// identity, which is one more than the highest nonce seen.
func (s Service) GetNonce(r store.Readable, ident access.Identity) (uint64, error) {
	key, err := s.keyFromIdentity(ident)
	if err != nil {
		return 0, xerrors.Errorf("key: %v", err)
	}

	value, err := prefixed.NewReadable(namespace, r).Get(key)
	if err != nil {
		return 0, xerrors.Errorf("store: %v", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value) + 1, nil
}

// Validate implements validation.Service. It processes the list of transactions
// while updating the snapshot then returns a bundle of the transaction results.
// A refused transaction is recorded so that it cannot be replayed, but its
// updates are discarded.
func (s Service) Validate(snap store.Snapshot, header validation.Header,
	txs []txn.Transaction) (validation.Result, error) {

	results := make([]TransactionResult, len(txs))
	previous := make([]txn.Transaction, 0, len(txs))

	for i, tx := range txs {
		res, err := s.validateTx(snap, header, previous, tx)
		if err != nil {
			return nil, xerrors.Errorf("tx %#x: %v", tx.GetID(), err)
		}

		results[i] = res
		previous = append(previous, tx)
	}

	return NewResult(results), nil
}

func (s Service) validateTx(snap store.Snapshot, header validation.Header,
	previous []txn.Transaction, tx txn.Transaction) (TransactionResult, error) {

	if tx.GetIdentity() == nil {
		return TransactionResult{}, xerrors.New("missing identity in transaction")
	}

	vsnap := prefixed.NewSnapshot(namespace, snap)

	txKey := append(append([]byte{}, txTag...), tx.GetID()...)

	seen, err := vsnap.Get(txKey)
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("store: %v", err)
	}

	if seen != nil {
		return refused(tx, xerrors.New("transaction already executed")), nil
	}

	v, ok := tx.(verifiable)
	if !ok {
		return refused(tx, xerrors.Errorf("transaction of type '%T' is not signed", tx)), nil
	}

	err = v.Verify()
	if err != nil {
		return refused(tx, err), nil
	}

	err = vsnap.Set(txKey, []byte{1})
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to set tx: %v", err)
	}

	err = s.setNonce(snap, tx.GetIdentity(), tx.GetNonce())
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to set nonce: %v", err)
	}

	step := execution.Step{
		Previous: previous,
		Current:  tx,
		Time:     header.Time,
		Index:    header.Index,
	}

	stage := mem.NewSnapshot(snap)

	res, err := s.execution.Execute(stage, step)
	if err != nil {
		// The execution environment could not run the transaction, like an
		// unknown contract, which is a failure of the transaction itself.
		return refused(tx, err), nil
	}

	if !res.Accepted {
		result := NewTransactionResult(tx, false, res.Message)
		result.err = res.Err

		ballot.Logger.Debug().
			Hex("tx", tx.GetID()).
			Str("reason", res.Message).
			Msg("transaction refused")

		return result, nil
	}

	err = stage.Apply(snap)
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to apply: %v", err)
	}

	return NewTransactionResult(tx, true, ""), nil
}

func (s Service) setNonce(snap store.Snapshot, ident access.Identity, nonce uint64) error {
	key, err := s.keyFromIdentity(ident)
	if err != nil {
		return xerrors.Errorf("key: %v", err)
	}

	vsnap := prefixed.NewSnapshot(namespace, snap)

	current, err := vsnap.Get(key)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	if len(current) == 8 && binary.LittleEndian.Uint64(current) >= nonce {
		return nil
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, nonce)

	err = vsnap.Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	return nil
}

func (s Service) keyFromIdentity(ident access.Identity) ([]byte, error) {
	data, err := ident.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	h := s.hashFac.New()
	h.Write(nonceTag)

	_, err = h.Write(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to write identity: %v", err)
	}

	return h.Sum(nil), nil
}

func refused(tx txn.Transaction, err error) TransactionResult {
	res := NewTransactionResult(tx, false, err.Error())
	res.err = err

	return res
}
