// Package json implements the JSON format of the blocks of the ledger.
package json

import (
	"encoding/json"

	"go.dedis.ch/ballot/core/ledger/types"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterBlockFormat(serde.FormatJSON, blockFormat{})
}

// ResultJSON is the JSON message of a transaction result.
type ResultJSON struct {
	Transaction json.RawMessage
	Accepted    bool
	Reason      string `json:",omitempty"`
}

// BlockJSON is the JSON message of a block.
type BlockJSON struct {
	Index    uint64
	Time     int64
	Previous []byte
	Results  []ResultJSON
}

// blockFormat is the JSON format engine of the blocks.
//
// - implements serde.FormatEngine
type blockFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the block
// if appropriate, otherwise an error.
func (f blockFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	block, ok := msg.(types.Block)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	results := make([]ResultJSON, 0, len(block.GetResults()))

	for _, res := range block.GetResults() {
		tx, err := res.GetTransaction().Serialize(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to serialize tx: %v", err)
		}

		accepted, reason := res.GetStatus()

		results = append(results, ResultJSON{
			Transaction: tx,
			Accepted:    accepted,
			Reason:      reason,
		})
	}

	m := BlockJSON{
		Index:    block.GetIndex(),
		Time:     block.GetTime(),
		Previous: block.GetPrevious(),
		Results:  results,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It returns the block of the JSON data
// if appropriate, otherwise an error.
func (f blockFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := BlockJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	fac := ctx.GetFactory(types.TransactionKey{})

	factory, ok := fac.(txn.Factory)
	if !ok {
		return nil, xerrors.Errorf("invalid transaction factory '%T'", fac)
	}

	results := make([]validation.TransactionResult, len(m.Results))

	for i, res := range m.Results {
		tx, err := factory.TransactionOf(ctx, res.Transaction)
		if err != nil {
			return nil, xerrors.Errorf("failed to decode tx: %v", err)
		}

		results[i] = simple.NewTransactionResult(tx, res.Accepted, res.Reason)
	}

	block, err := types.NewBlock(results,
		types.WithIndex(m.Index),
		types.WithTime(m.Time),
		types.WithPrevious(m.Previous))
	if err != nil {
		return nil, xerrors.Errorf("failed to create block: %v", err)
	}

	return block, nil
}
