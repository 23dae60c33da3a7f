package evoting

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/core/account"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestClient_Scenarios(t *testing.T) {
	clk := clock.NewMock()
	srvc, _ := newLedger(t, clk)

	ctx := context.Background()
	authority := newClient(srvc, ed25519.NewSigner())
	v1 := newClient(srvc, ed25519.NewSigner())

	receipt, err := authority.InitElection(ctx, electionID, "Board", []string{"Alice", "Bob"}, 100, 200)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	// A: a first vote is counted.
	clk.Set(time.Unix(150, 0))

	_, err = v1.CastVote(ctx, electionID, 0, "v1")
	require.NoError(t, err)
	requireVotes(t, srvc, 1, 0)

	// B: a second vote of the same voter is refused.
	clk.Set(time.Unix(160, 0))

	receipt, err = v1.CastVote(ctx, electionID, 0, "v1")
	require.True(t, xerrors.Is(err, types.ErrAlreadyVoted))
	require.False(t, receipt.Accepted)
	require.Equal(t, "failed to CAST_VOTE: You have already voted in this election", receipt.Message)
	requireVotes(t, srvc, 1, 0)

	// C: a vote after the window is refused.
	clk.Set(time.Unix(250, 0))

	late := ed25519.NewSigner()

	_, err = newClient(srvc, late).CastVote(ctx, electionID, 0, "")
	require.True(t, xerrors.Is(err, types.ErrElectionNotInProgress))
	requireVotes(t, srvc, 1, 0)
	requireNoVoterRecord(t, srvc, late)

	// D: an unknown candidate is refused.
	clk.Set(time.Unix(150, 0))

	lost := ed25519.NewSigner()

	_, err = newClient(srvc, lost).CastVote(ctx, electionID, 5, "")
	require.True(t, xerrors.Is(err, types.ErrInvalidCandidate))
	requireVotes(t, srvc, 1, 0)
	requireNoVoterRecord(t, srvc, lost)

	// E: only the authority can end the election.
	_, err = v1.EndElection(ctx, electionID)
	require.True(t, xerrors.Is(err, types.ErrUnauthorized))

	_, err = newClient(srvc, ed25519.NewSigner()).CastVote(ctx, electionID, 1, "")
	require.NoError(t, err)
	requireVotes(t, srvc, 1, 1)

	// F: the authority ends the election and the votes are refused.
	_, err = authority.EndElection(ctx, electionID)
	require.NoError(t, err)

	closed := ed25519.NewSigner()

	_, err = newClient(srvc, closed).CastVote(ctx, electionID, 1, "")
	require.True(t, xerrors.Is(err, types.ErrElectionNotActive))
	requireVotes(t, srvc, 1, 1)
	requireNoVoterRecord(t, srvc, closed)

	err = srvc.View(func(r store.Readable) error {
		results, err := Results(r, electionID)
		require.NoError(t, err)
		require.False(t, results.IsActive)
		require.Equal(t, uint32(2), results.TotalVoters)

		return nil
	})
	require.NoError(t, err)
}

func TestClient_DuplicateElection(t *testing.T) {
	srvc, _ := newLedger(t, clock.NewMock())

	ctx := context.Background()

	_, err := newClient(srvc, ed25519.NewSigner()).InitElection(ctx, electionID, "A", nil, 0, 1)
	require.NoError(t, err)

	_, err = newClient(srvc, ed25519.NewSigner()).InitElection(ctx, electionID, "B", nil, 0, 1)
	require.True(t, xerrors.Is(err, account.ErrInUse))

	err = srvc.View(func(r store.Readable) error {
		election, err := GetElection(r, electionID)
		require.NoError(t, err)
		require.Equal(t, "A", election.Name)

		return nil
	})
	require.NoError(t, err)
}

func TestClient_ConcurrentDoubleVote(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(50, 0))

	srvc, _ := newLedger(t, clk)

	ctx := context.Background()

	_, err := newClient(srvc, ed25519.NewSigner()).InitElection(ctx, electionID, "Board",
		[]string{"Alice", "Bob"}, 0, 100)
	require.NoError(t, err)

	voter := ed25519.NewSigner()
	client := newClient(srvc, voter)

	n := 20

	var wg sync.WaitGroup
	wg.Add(n)

	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()

			_, errs[i] = client.CastVote(ctx, electionID, uint8(i%2), "hash")
		}(i)
	}

	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}

		require.True(t, xerrors.Is(err, types.ErrAlreadyVoted), err.Error())
	}

	require.Equal(t, 1, accepted)

	err = srvc.View(func(r store.Readable) error {
		election, err := GetElection(r, electionID)
		require.NoError(t, err)
		require.Equal(t, uint32(1), election.TotalVoters)
		require.Equal(t, uint32(1), election.Votes[0]+election.Votes[1])

		return nil
	})
	require.NoError(t, err)
}

func TestClient_ConcurrentVoters(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(50, 0))

	srvc, _ := newLedger(t, clk)

	ctx := context.Background()

	_, err := newClient(srvc, ed25519.NewSigner()).InitElection(ctx, electionID, "Board",
		[]string{"A", "B", "C"}, 0, 100)
	require.NoError(t, err)

	n := 30

	var wg sync.WaitGroup
	wg.Add(n)

	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()

			_, errs[i] = newClient(srvc, ed25519.NewSigner()).CastVote(ctx, electionID, uint8(i%3), "")
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	requireVotes(t, srvc, 10, 10, 10)
}

func TestQueries(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(50, 0))

	srvc, _ := newLedger(t, clk)

	ctx := context.Background()
	voter := ed25519.NewSigner()

	_, err := newClient(srvc, ed25519.NewSigner()).InitElection(ctx, electionID, "Board",
		[]string{"Alice", "Bob"}, 0, 100)
	require.NoError(t, err)

	_, err = newClient(srvc, voter).CastVote(ctx, electionID, 1, "secret")
	require.NoError(t, err)

	voterKey, err := voter.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	err = srvc.View(func(r store.Readable) error {
		record, err := GetVoter(r, electionID, voterKey)
		require.NoError(t, err)
		require.True(t, record.HasVoted)
		require.Equal(t, "secret", record.VerificationHash)

		_, err = GetVoter(r, electionID, []byte("unknown"))
		require.True(t, xerrors.Is(err, account.ErrNotFound))

		ok, err := VerifyVote(r, electionID, voterKey, "secret")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = VerifyVote(r, electionID, voterKey, "other")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = VerifyVote(r, electionID, []byte("unknown"), "secret")
		require.NoError(t, err)
		require.False(t, ok)

		results, err := Results(r, electionID)
		require.NoError(t, err)
		require.Equal(t, "Board", results.Name)
		require.Equal(t, []types.CandidateResult{{Name: "Alice"}, {Name: "Bob", Votes: 1}}, results.Candidates)
		require.True(t, results.IsActive)

		_, err = Results(r, []byte("unknown"))
		require.True(t, xerrors.Is(err, account.ErrNotFound))

		return nil
	})
	require.NoError(t, err)

	// The records are not reachable outside of the contract namespace.
	err = srvc.View(func(r store.Readable) error {
		value, err := r.Get(types.ElectionAddress(electionID))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)

	_, err = VerifyVote(fake.NewBadSnapshot(), electionID, voterKey, "")
	require.Error(t, err)
}

func TestClient_Failures(t *testing.T) {
	srvc, _ := newLedger(t, clock.NewMock())

	client := NewClient(srvc, badManager{})

	_, err := client.EndElection(context.Background(), electionID)
	require.EqualError(t, err, fake.Err("failed to sync manager"))

	client = NewClient(srvc, badManager{errMake: fake.GetError()})

	_, err = client.EndElection(context.Background(), electionID)
	require.EqualError(t, err, fake.Err("failed to make tx"))

	client = newClient(srvc, ed25519.NewSigner())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.EndElection(ctx, electionID)
	require.True(t, xerrors.Is(err, context.Canceled))

	_, err = client.EndElection(context.Background(), electionID)
	require.True(t, xerrors.Is(err, account.ErrNotFound))
}

// -----------------------------------------------------------------------------
// Utility functions

func newLedger(t *testing.T, clk clock.Clock) (*ledger.Service, kv.DB) {
	db, err := kv.New(filepath.Join(t.TempDir(), "ballot.db"))
	require.NoError(t, err)

	exec := native.NewExecution()
	RegisterContract(exec, NewContract())

	srvc, err := ledger.NewService(db, exec, ledger.WithClock(clk))
	require.NoError(t, err)

	srvc.Listen()

	t.Cleanup(func() {
		srvc.Close()
		db.Close()
	})

	return srvc, db
}

func newClient(l *ledger.Service, signer crypto.Signer) *Client {
	return NewClient(l, signed.NewManager(signer, l))
}

func requireVotes(t *testing.T, l ledger.Ledger, votes ...uint32) {
	err := l.View(func(r store.Readable) error {
		election, err := GetElection(r, electionID)
		require.NoError(t, err)
		require.Equal(t, votes, election.Votes)

		total := uint32(0)
		for _, v := range votes {
			total += v
		}

		require.Equal(t, total, election.TotalVoters)

		return nil
	})
	require.NoError(t, err)
}

type badManager struct {
	txn.Manager
	errMake error
}

func (m badManager) Sync() error {
	if m.errMake != nil {
		return nil
	}

	return fake.GetError()
}

func (m badManager) Make(...txn.Arg) (txn.Transaction, error) {
	return nil, m.errMake
}

func requireNoVoterRecord(t *testing.T, l ledger.Ledger, signer crypto.Signer) {
	key, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	err = l.View(func(r store.Readable) error {
		_, err := GetVoter(r, electionID, key)
		require.True(t, xerrors.Is(err, account.ErrNotFound))

		return nil
	})
	require.NoError(t, err)
}
