// Package controller implements a controller for the ledger of the node.
//
// The controller creates the execution service where the contracts are
// registered, and the ledger that executes the transactions. It defines the
// commands to inspect the ledger and, when an HTTP proxy is available, the
// handlers to submit transactions.
package controller

import (
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/proxy"
	"golang.org/x/xerrors"
)

// BatchFlag is the name of the start flag that defines the maximum number of
// transactions per block.
const BatchFlag = "batch"

const defaultBatch = 100

// minimal is the controller of the ledger.
//
// - implements node.Initializer
type minimal struct{}

// NewController creates a new controller for the ledger.
func NewController() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. It defines the ledger commands.
func (minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.IntFlag{
		Name:    BatchFlag,
		Usage:   "maximum number of transactions per block",
		Value:   defaultBatch,
		EnvVars: []string{"BALLOT_BATCH"},
	})

	cmd := builder.SetCommand("ledger")
	cmd.SetDescription("Ledger administration")

	sub := cmd.SetSubCommand("status")
	sub.SetDescription("Show the latest block of the ledger")
	sub.SetAction(builder.MakeAction(statusAction{}))

	sub = cmd.SetSubCommand("block")
	sub.SetDescription("Show the transactions of a block")
	sub.SetFlags(cli.IntFlag{
		Name:     "index",
		Required: true,
		Usage:    "index of the block",
	})
	sub.SetAction(builder.MakeAction(blockAction{}))
}

// OnStart implements node.Initializer. It creates and starts the ledger over
// the database of the node.
func (minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("failed to resolve db: %v", err)
	}

	exec := native.NewExecution()

	srvc, err := ledger.NewService(db, exec, ledger.WithBatchSize(flags.Int(BatchFlag)))
	if err != nil {
		return xerrors.Errorf("failed to create ledger: %v", err)
	}

	srvc.Listen()

	inj.Inject(exec)
	inj.Inject(srvc)

	var p proxy.Proxy
	err = inj.Resolve(&p)
	if err == nil {
		registerHandlers(p, srvc)
	}

	return nil
}

// OnStop implements node.Initializer. It stops the ledger.
func (minimal) OnStop(inj node.Injector) error {
	var srvc *ledger.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	err = srvc.Close()
	if err != nil {
		return xerrors.Errorf("failed to close ledger: %v", err)
	}

	return nil
}
