package evoting

import (
	"context"
	"strconv"
	"sync"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/txn"
	"golang.org/x/xerrors"
)

// Client is a helper to submit the commands of the contract to a ledger. It
// can be used by several goroutines.
type Client struct {
	sync.Mutex

	ledger  ledger.Ledger
	manager txn.Manager
	synced  bool
}

// NewClient returns a new client that signs the transactions with the manager.
func NewClient(l ledger.Ledger, mgr txn.Manager) *Client {
	return &Client{
		ledger:  l,
		manager: mgr,
	}
}

// InitElection submits a transaction to create an election.
func (c *Client) InitElection(ctx context.Context, electionID []byte, name string,
	candidates []string, start, end int64) (ledger.Receipt, error) {

	data, err := recordContext.Marshal(candidates)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to encode candidates: %v", err)
	}

	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdInitElection)},
		txn.Arg{Key: ElectionIDArg, Value: electionID},
		txn.Arg{Key: NameArg, Value: []byte(name)},
		txn.Arg{Key: CandidatesArg, Value: data},
		txn.Arg{Key: StartArg, Value: []byte(strconv.FormatInt(start, 10))},
		txn.Arg{Key: EndArg, Value: []byte(strconv.FormatInt(end, 10))},
	)
}

// CastVote submits a transaction to vote for the candidate in the election.
func (c *Client) CastVote(ctx context.Context, electionID []byte, candidate uint8,
	hash string) (ledger.Receipt, error) {

	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdCastVote)},
		txn.Arg{Key: ElectionIDArg, Value: electionID},
		txn.Arg{Key: CandidateArg, Value: []byte(strconv.FormatUint(uint64(candidate), 10))},
		txn.Arg{Key: HashArg, Value: []byte(hash)},
	)
}

// EndElection submits a transaction to end the election.
func (c *Client) EndElection(ctx context.Context, electionID []byte) (ledger.Receipt, error) {
	return c.submit(ctx,
		txn.Arg{Key: CmdArg, Value: []byte(CmdEndElection)},
		txn.Arg{Key: ElectionIDArg, Value: electionID},
	)
}

// submit creates the transaction and waits for its receipt. A refused
// transaction returns an error that wraps the error of the contract.
func (c *Client) submit(ctx context.Context, args ...txn.Arg) (ledger.Receipt, error) {
	args = append([]txn.Arg{{Key: ballot.ContractArg, Value: []byte(ContractName)}}, args...)

	tx, err := c.makeTx(args)
	if err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := c.ledger.Submit(ctx, tx)
	if err != nil {
		return receipt, xerrors.Errorf("failed to submit: %w", err)
	}

	if !receipt.Accepted {
		if receipt.Err != nil {
			return receipt, xerrors.Errorf("transaction refused: %w", receipt.Err)
		}

		return receipt, xerrors.Errorf("transaction refused: %s", receipt.Message)
	}

	return receipt, nil
}

func (c *Client) makeTx(args []txn.Arg) (txn.Transaction, error) {
	c.Lock()
	defer c.Unlock()

	// The nonce is fetched once and then maintained by the manager so that
	// concurrent submissions never share a nonce.
	if !c.synced {
		err := c.manager.Sync()
		if err != nil {
			return nil, xerrors.Errorf("failed to sync manager: %v", err)
		}

		c.synced = true
	}

	tx, err := c.manager.Make(args...)
	if err != nil {
		return nil, xerrors.Errorf("failed to make tx: %v", err)
	}

	return tx, nil
}
