package controller

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/contracts/evoting"
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/crypto/loader"
	"golang.org/x/xerrors"
)

const txTimeout = 30 * time.Second

// createAction is an action to create a new election.
//
// - implements node.ActionTemplate
type createAction struct{}

// Execute implements node.ActionTemplate. It reads the definition of the
// election and submits the transaction signed by the node.
func (createAction) Execute(ctx node.Context) error {
	var client *evoting.Client
	err := ctx.Injector.Resolve(&client)
	if err != nil {
		return xerrors.Errorf("failed to resolve client: %v", err)
	}

	def, err := readDefinition(ctx.Flags)
	if err != nil {
		return xerrors.Errorf("failed to read definition: %v", err)
	}

	start, end, err := def.Window()
	if err != nil {
		return xerrors.Errorf("invalid definition: %v", err)
	}

	tctx, cancel := context.WithTimeout(context.Background(), txTimeout)
	defer cancel()

	receipt, err := client.InitElection(tctx, []byte(def.ID), def.Name, def.Candidates, start, end)
	if err != nil {
		return xerrors.Errorf("failed to create election: %v", err)
	}

	fmt.Fprintf(ctx.Out, "election %s created in block %d", def.ID, receipt.Index)

	return nil
}

// voteAction is an action to vote in an election.
//
// - implements node.ActionTemplate
type voteAction struct{}

// Execute implements node.ActionTemplate. It submits a vote signed by the key
// of the flag, or by the node.
func (voteAction) Execute(ctx node.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	candidate := ctx.Flags.Int("candidate")
	if candidate < 0 || candidate > 255 {
		return xerrors.Errorf("invalid candidate index: %d", candidate)
	}

	tctx, cancel := context.WithTimeout(context.Background(), txTimeout)
	defer cancel()

	receipt, err := client.CastVote(tctx, []byte(ctx.Flags.String("election")),
		uint8(candidate), ctx.Flags.String("hash"))
	if err != nil {
		return xerrors.Errorf("failed to vote: %v", err)
	}

	fmt.Fprintf(ctx.Out, "vote accepted in block %d", receipt.Index)

	return nil
}

// endAction is an action to end an election.
//
// - implements node.ActionTemplate
type endAction struct{}

// Execute implements node.ActionTemplate. It submits the end of the election
// signed by the key of the flag, or by the node.
func (endAction) Execute(ctx node.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(context.Background(), txTimeout)
	defer cancel()

	receipt, err := client.EndElection(tctx, []byte(ctx.Flags.String("election")))
	if err != nil {
		return xerrors.Errorf("failed to end election: %v", err)
	}

	fmt.Fprintf(ctx.Out, "election ended in block %d", receipt.Index)

	return nil
}

// showAction is an action to display the results of an election.
//
// - implements node.ActionTemplate
type showAction struct{}

// Execute implements node.ActionTemplate. It prints the tally of the election.
func (showAction) Execute(ctx node.Context) error {
	var srvc ledger.Ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var results types.Results

	err = srvc.View(func(r store.Readable) error {
		results, err = evoting.Results(r, []byte(ctx.Flags.String("election")))
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read election: %v", err)
	}

	fmt.Fprintf(ctx.Out, "Name: %s\nActive: %t\nWindow: %s - %s\nVoters: %d\n",
		results.Name, results.IsActive, formatTime(results.StartTime),
		formatTime(results.EndTime), results.TotalVoters)

	for i, c := range results.Candidates {
		fmt.Fprintf(ctx.Out, "[%d] %s: %d\n", i, c.Name, c.Votes)
	}

	return nil
}

// listAction is an action to list the elections.
//
// - implements node.ActionTemplate
type listAction struct{}

// Execute implements node.ActionTemplate. It prints one line per election in
// the order of creation.
func (listAction) Execute(ctx node.Context) error {
	var srvc ledger.Ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var indexer *evoting.Indexer
	err = ctx.Injector.Resolve(&indexer)
	if err != nil {
		return xerrors.Errorf("failed to resolve indexer: %v", err)
	}

	summaries, err := listElections(srvc, indexer)
	if err != nil {
		return err
	}

	for _, s := range summaries {
		fmt.Fprintf(ctx.Out, "%s\t%s\tactive=%t\tvoters=%d\n", s.ID, s.Name, s.IsActive, s.TotalVoters)
	}

	return nil
}

// verifyAction is an action to verify the vote of a voter.
//
// - implements node.ActionTemplate
type verifyAction struct{}

// Execute implements node.ActionTemplate. It prints whether the voter has voted
// with the verification hash.
func (verifyAction) Execute(ctx node.Context) error {
	var srvc ledger.Ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	voter, err := hex.DecodeString(ctx.Flags.String("voter"))
	if err != nil {
		return xerrors.Errorf("failed to decode voter: %v", err)
	}

	var ok bool

	err = srvc.View(func(r store.Readable) error {
		ok, err = evoting.VerifyVote(r, []byte(ctx.Flags.String("election")), voter,
			ctx.Flags.String("hash"))
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to verify: %v", err)
	}

	if ok {
		fmt.Fprint(ctx.Out, "vote verified")
	} else {
		fmt.Fprint(ctx.Out, "vote not verified")
	}

	return nil
}

// identityAction is an action to display the identity of the node.
//
// - implements node.ActionTemplate
type identityAction struct{}

// Execute implements node.ActionTemplate. It prints the public key of the node
// in hexadecimal.
func (identityAction) Execute(ctx node.Context) error {
	var signer ed25519.Signer
	err := ctx.Injector.Resolve(&signer)
	if err != nil {
		return xerrors.Errorf("failed to resolve signer: %v", err)
	}

	buf, err := signer.GetPublicKey().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	fmt.Fprint(ctx.Out, hex.EncodeToString(buf))

	return nil
}

// getClient returns the client of the node, or a client signing with the key
// file of the flag.
func getClient(ctx node.Context) (*evoting.Client, error) {
	path := ctx.Flags.String("key")
	if path == "" {
		var client *evoting.Client
		err := ctx.Injector.Resolve(&client)
		if err != nil {
			return nil, xerrors.Errorf("failed to resolve client: %v", err)
		}

		return client, nil
	}

	var srvc ledger.Ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return nil, xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	signer, err := loadSigner(loader.NewFileLoader(path), false)
	if err != nil {
		return nil, xerrors.Errorf("failed to load key: %v", err)
	}

	return evoting.NewClient(srvc, signed.NewManager(signer, srvc)), nil
}

func formatTime(secs int64) string {
	return time.Unix(secs, 0).UTC().Format(time.RFC3339)
}

// summary is the short description of an election.
type summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsActive    bool   `json:"isActive"`
	TotalVoters uint32 `json:"totalVoters"`
}

func listElections(srvc ledger.Ledger, indexer *evoting.Indexer) ([]summary, error) {
	ids, err := indexer.List()
	if err != nil {
		return nil, xerrors.Errorf("failed to list elections: %v", err)
	}

	summaries := make([]summary, 0, len(ids))

	err = srvc.View(func(r store.Readable) error {
		for _, id := range ids {
			election, err := evoting.GetElection(r, id)
			if err != nil {
				return xerrors.Errorf("election '%s': %v", id, err)
			}

			summaries = append(summaries, summary{
				ID:          string(id),
				Name:        election.Name,
				IsActive:    election.IsActive,
				TotalVoters: election.TotalVoters,
			})
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read elections: %v", err)
	}

	return summaries, nil
}
