package controller

import (
	"fmt"
	"time"

	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/ledger"
	"golang.org/x/xerrors"
)

// statusAction is an action to display the latest block of the ledger.
//
// - implements node.ActionTemplate
type statusAction struct{}

// Execute implements node.ActionTemplate. It prints the index, the time and
// the digest of the latest block.
func (statusAction) Execute(ctx node.Context) error {
	var srvc ledger.Ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	status := srvc.GetStatus()

	fmt.Fprintf(ctx.Out, "Index: %d\nTime: %s\nHash: %x",
		status.Index, time.Unix(status.Time, 0).UTC().Format(time.RFC3339), status.Hash)

	return nil
}

// blockAction is an action to display the transactions of a block.
//
// - implements node.ActionTemplate
type blockAction struct{}

// Execute implements node.ActionTemplate. It prints one line per transaction of
// the block with its status.
func (blockAction) Execute(ctx node.Context) error {
	var srvc ledger.Ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	index := ctx.Flags.Int("index")
	if index <= 0 {
		return xerrors.Errorf("invalid index: %d", index)
	}

	block, err := srvc.GetBlock(uint64(index))
	if err != nil {
		return xerrors.Errorf("failed to read block: %v", err)
	}

	fmt.Fprintf(ctx.Out, "Block %d at %s (%x)\n", block.GetIndex(),
		time.Unix(block.GetTime(), 0).UTC().Format(time.RFC3339), block.GetHash())

	for _, res := range block.GetResults() {
		accepted, reason := res.GetStatus()

		status := "accepted"
		if !accepted {
			status = "refused: " + reason
		}

		fmt.Fprintf(ctx.Out, "- %x %s\n", res.GetTransaction().GetID(), status)
	}

	return nil
}
