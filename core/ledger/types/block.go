// Package types defines the blocks of the ledger.
//
// A block is the outcome of a batch of transactions executed at the same
// trusted time. It keeps every transaction, refused ones included, so that the
// history shows which transactions have been consumed.
package types

import (
	"encoding/binary"
	"io"

	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

var blockFormats = registry.NewSimpleRegistry()

// RegisterBlockFormat registers the engine for the provided format.
func RegisterBlockFormat(f serde.Format, e serde.FormatEngine) {
	blockFormats.Register(f, e)
}

// Block is a batch of transaction results stamped with the index and the time
// of the ledger.
//
// - implements serde.Message
// - implements serde.Fingerprinter
type Block struct {
	index    uint64
	time     int64
	previous []byte
	results  []validation.TransactionResult
	hash     []byte
}

type blockTemplate struct {
	Block

	hashFactory crypto.HashFactory
}

// BlockOption is the type of option to set some fields of a block.
type BlockOption func(*blockTemplate)

// WithIndex is an option to set the index of the block.
func WithIndex(index uint64) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.index = index
	}
}

// WithTime is an option to set the time of the block in unix seconds.
func WithTime(t int64) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.time = t
	}
}

// WithPrevious is an option to set the digest of the previous block.
func WithPrevious(previous []byte) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.previous = previous
	}
}

// WithHashFactory is an option to set the hash factory of the block digest.
func WithHashFactory(f crypto.HashFactory) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.hashFactory = f
	}
}

// NewBlock creates a new block with the results of the transactions and it
// computes its digest.
func NewBlock(results []validation.TransactionResult, opts ...BlockOption) (Block, error) {
	tmpl := blockTemplate{
		Block: Block{
			results: results,
		},
		hashFactory: crypto.NewHashFactory(crypto.Sha256),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := tmpl.hashFactory.New()

	err := tmpl.Fingerprint(h)
	if err != nil {
		return Block{}, xerrors.Errorf("fingerprint failed: %v", err)
	}

	tmpl.hash = h.Sum(nil)

	return tmpl.Block, nil
}

// GetIndex returns the index of the block.
func (b Block) GetIndex() uint64 {
	return b.index
}

// GetTime returns the time of the block in unix seconds.
func (b Block) GetTime() int64 {
	return b.time
}

// GetPrevious returns the digest of the previous block.
func (b Block) GetPrevious() []byte {
	return append([]byte{}, b.previous...)
}

// GetHash returns the digest of the block.
func (b Block) GetHash() []byte {
	return append([]byte{}, b.hash...)
}

// GetResults returns the results of the transactions of the block.
func (b Block) GetResults() []validation.TransactionResult {
	return append([]validation.TransactionResult{}, b.results...)
}

// Fingerprint implements serde.Fingerprinter. It writes a deterministic
// binary representation of the block.
func (b Block) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 16)
	binary.LittleEndian.PutUint64(buffer[:8], b.index)
	binary.LittleEndian.PutUint64(buffer[8:], uint64(b.time))

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write header: %v", err)
	}

	_, err = w.Write(b.previous)
	if err != nil {
		return xerrors.Errorf("couldn't write previous: %v", err)
	}

	for _, res := range b.results {
		err = res.GetTransaction().Fingerprint(w)
		if err != nil {
			return xerrors.Errorf("couldn't fingerprint tx: %v", err)
		}

		accepted, _ := res.GetStatus()

		bit := []byte{0}
		if accepted {
			bit[0] = 1
		}

		_, err = w.Write(bit)
		if err != nil {
			return xerrors.Errorf("couldn't write status: %v", err)
		}
	}

	return nil
}

// Serialize implements serde.Message. It returns the serialized data of the
// block.
func (b Block) Serialize(ctx serde.Context) ([]byte, error) {
	format := blockFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, b)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// TransactionKey is the key of the transaction factory in the context.
type TransactionKey struct{}

// BlockFactory is a factory to deserialize blocks.
//
// - implements serde.Factory
type BlockFactory struct {
	txFac txn.Factory
}

// NewBlockFactory returns a new block factory that uses the transaction
// factory to decode the transactions.
func NewBlockFactory(f txn.Factory) BlockFactory {
	return BlockFactory{
		txFac: f,
	}
}

// Deserialize implements serde.Factory. It returns the block of the data if
// appropriate, otherwise an error.
func (f BlockFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.BlockOf(ctx, data)
}

// BlockOf returns the block of the data if appropriate, otherwise an error.
func (f BlockFactory) BlockOf(ctx serde.Context, data []byte) (Block, error) {
	format := blockFormats.Get(ctx.GetFormat())

	ctx = serde.WithFactory(ctx, TransactionKey{}, f.txFac)

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return Block{}, xerrors.Errorf("decoding failed: %v", err)
	}

	block, ok := msg.(Block)
	if !ok {
		return Block{}, xerrors.Errorf("invalid block of type '%T'", msg)
	}

	return block, nil
}
