package evoting

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/core/account"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
	"golang.org/x/xerrors"
)

var electionID = []byte("election")

func TestExecute(t *testing.T) {
	contract := NewContract()
	contract.cmd = fakeCmd{}

	signer := ed25519.NewSigner()

	err := contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0))
	require.EqualError(t, err, "'evoting:command' not found in tx arg")

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, "fake"))
	require.EqualError(t, err, "unknown command: fake")

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, string(CmdInitElection)))
	require.NoError(t, err)

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, string(CmdCastVote)))
	require.NoError(t, err)

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, string(CmdEndElection)))
	require.NoError(t, err)

	contract.cmd = fakeCmd{err: fake.GetError()}

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, string(CmdInitElection)))
	require.EqualError(t, err, fake.Err("failed to INIT_ELECTION"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, string(CmdCastVote)))
	require.EqualError(t, err, fake.Err("failed to CAST_VOTE"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, signer, 0, CmdArg, string(CmdEndElection)))
	require.EqualError(t, err, fake.Err("failed to END_ELECTION"))
	require.True(t, xerrors.Is(err, fake.GetError()))
}

func TestContract_UID(t *testing.T) {
	require.Equal(t, ContractUID, NewContract().UID())
}

func TestRegisterContract(t *testing.T) {
	exec := native.NewExecution()

	RegisterContract(exec, NewContract())

	require.Panics(t, func() {
		RegisterContract(exec, NewContract())
	})
}

func TestCommand_InitElection(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	authority := ed25519.NewSigner()
	snap := fake.NewSnapshot()

	err := cmd.initElection(snap, makeInitStep(t, authority, []string{"Alice", "Bob"}, 100, 200))
	require.NoError(t, err)

	election := readElection(t, snap)
	require.Equal(t, "Board", election.Name)
	require.Equal(t, []string{"Alice", "Bob"}, election.Candidates)
	require.Equal(t, []uint32{0, 0}, election.Votes)
	require.Equal(t, int64(100), election.StartTime)
	require.Equal(t, int64(200), election.EndTime)
	require.True(t, election.IsActive)
	require.Equal(t, uint32(0), election.TotalVoters)
	require.Equal(t, marshalIdentity(t, authority), election.Authority)

	// Only the election record is written.
	require.Equal(t, 1, snap.Len())

	err = cmd.initElection(snap, makeInitStep(t, ed25519.NewSigner(), []string{"Eve"}, 1, 2))
	require.True(t, xerrors.Is(err, account.ErrInUse))
	require.Equal(t, "Board", readElection(t, snap).Name)

	// Start after end is accepted.
	err = cmd.initElection(fake.NewSnapshot(), makeInitStep(t, authority, nil, 300, 200))
	require.NoError(t, err)

	err = cmd.initElection(fake.NewSnapshot(), makeStep(t, authority, 0))
	require.EqualError(t, err, "'evoting:election_id' not found in tx arg")

	err = cmd.initElection(fake.NewSnapshot(), makeStep(t, authority, 0,
		ElectionIDArg, string(electionID), CandidatesArg, "[1,2]"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode candidates: ")

	err = cmd.initElection(fake.NewSnapshot(), makeStep(t, authority, 0,
		ElectionIDArg, string(electionID), CandidatesArg, "[]", StartArg, "abc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid 'evoting:start' argument: ")

	err = cmd.initElection(fake.NewSnapshot(), makeStep(t, authority, 0,
		ElectionIDArg, string(electionID), CandidatesArg, "[]", StartArg, "1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid 'evoting:end' argument: ")

	err = cmd.initElection(fake.NewBadSnapshot(), makeInitStep(t, authority, nil, 1, 2))
	require.EqualError(t, err, fake.Err("failed to allocate election: failed to read account"))

	contract.context = fake.NewBadContext()
	err = cmd.initElection(fake.NewSnapshot(), makeInitStep(t, authority, nil, 1, 2))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode candidates: ")
}

func TestCommand_InitElection_SpaceExceeded(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	candidates := make([]string, types.ElectionSpace/4)
	for i := range candidates {
		candidates[i] = "candidate"
	}

	snap := fake.NewSnapshot()

	err := cmd.initElection(snap, makeInitStep(t, ed25519.NewSigner(), candidates, 1, 2))
	require.True(t, xerrors.Is(err, account.ErrSpaceExceeded))
	require.Equal(t, 0, snap.Len())
}

func TestCommand_InitElection_ReservesTally(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	authority := ed25519.NewSigner()

	empty := types.NewElection(marshalIdentity(t, authority), "Board", []string{"", "Bob"}, 100, 200)
	size, err := empty.MaxSize(recordContext)
	require.NoError(t, err)

	// The longest name that leaves room for the largest tally.
	name := strings.Repeat("a", types.ElectionSpace-size)

	snap := fake.NewSnapshot()

	err = cmd.initElection(snap, makeInitStep(t, authority, []string{name + "a", "Bob"}, 100, 200))
	require.True(t, xerrors.Is(err, account.ErrSpaceExceeded))
	require.Equal(t, 0, snap.Len())

	err = cmd.initElection(snap, makeInitStep(t, authority, []string{name, "Bob"}, 100, 200))
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		err = cmd.castVote(snap, makeVoteStep(t, ed25519.NewSigner(), 150, 0, ""))
		require.NoError(t, err)
	}

	election := readElection(t, snap)
	require.Equal(t, []uint32{120, 0}, election.Votes)
	require.Equal(t, uint32(120), election.TotalVoters)
}

func TestCommand_CastVote(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	authority := ed25519.NewSigner()
	voter := ed25519.NewSigner()
	snap := fake.NewSnapshot()

	err := cmd.initElection(snap, makeInitStep(t, authority, []string{"Alice", "Bob", "Carol"}, 100, 200))
	require.NoError(t, err)

	err = cmd.castVote(snap, makeVoteStep(t, voter, 150, 1, "hash"))
	require.NoError(t, err)

	election := readElection(t, snap)
	require.Equal(t, []uint32{0, 1, 0}, election.Votes)
	require.Equal(t, uint32(1), election.TotalVoters)

	record := readVoter(t, snap, voter)
	require.True(t, record.HasVoted)
	require.Equal(t, "hash", record.VerificationHash)

	// The window is inclusive.
	err = cmd.castVote(snap, makeVoteStep(t, ed25519.NewSigner(), 100, 0, ""))
	require.NoError(t, err)

	err = cmd.castVote(snap, makeVoteStep(t, ed25519.NewSigner(), 200, 2, ""))
	require.NoError(t, err)

	election = readElection(t, snap)
	require.Equal(t, []uint32{1, 1, 1}, election.Votes)
	require.Equal(t, uint32(3), election.TotalVoters)

	err = cmd.castVote(snap, makeVoteStep(t, ed25519.NewSigner(), 99, 0, ""))
	require.Equal(t, types.ErrElectionNotInProgress, err)

	err = cmd.castVote(snap, makeVoteStep(t, ed25519.NewSigner(), 201, 0, ""))
	require.Equal(t, types.ErrElectionNotInProgress, err)

	err = cmd.castVote(snap, makeVoteStep(t, ed25519.NewSigner(), 150, 3, ""))
	require.Equal(t, types.ErrInvalidCandidate, err)

	err = cmd.castVote(snap, makeVoteStep(t, voter, 150, 0, "other"))
	require.Equal(t, types.ErrAlreadyVoted, err)
	require.Equal(t, "hash", readVoter(t, snap, voter).VerificationHash)

	election = readElection(t, snap)
	require.Equal(t, []uint32{1, 1, 1}, election.Votes)
	require.Equal(t, uint32(3), election.TotalVoters)
}

func TestCommand_CastVote_CheckOrder(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	authority := ed25519.NewSigner()
	voter := ed25519.NewSigner()
	snap := fake.NewSnapshot()

	err := cmd.initElection(snap, makeInitStep(t, authority, []string{"Alice"}, 100, 200))
	require.NoError(t, err)

	err = cmd.castVote(snap, makeVoteStep(t, voter, 150, 0, ""))
	require.NoError(t, err)

	// An out of range candidate by a voter that already voted.
	err = cmd.castVote(snap, makeVoteStep(t, voter, 150, 9, ""))
	require.Equal(t, types.ErrAlreadyVoted, err)

	// A voter that already voted, outside of the window.
	err = cmd.castVote(snap, makeVoteStep(t, voter, 300, 0, ""))
	require.Equal(t, types.ErrElectionNotInProgress, err)

	err = cmd.endElection(snap, makeEndStep(t, authority))
	require.NoError(t, err)

	// Every check fails but the activity comes first.
	err = cmd.castVote(snap, makeVoteStep(t, voter, 300, 9, ""))
	require.Equal(t, types.ErrElectionNotActive, err)
}

func TestCommand_CastVote_Failures(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	voter := ed25519.NewSigner()

	err := cmd.castVote(fake.NewSnapshot(), makeStep(t, voter, 0))
	require.EqualError(t, err, "'evoting:election_id' not found in tx arg")

	err = cmd.castVote(fake.NewSnapshot(), makeStep(t, voter, 0,
		ElectionIDArg, string(electionID), CandidateArg, "256"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid candidate argument: ")

	err = cmd.castVote(fake.NewSnapshot(), makeVoteStep(t, voter, 0, 0, ""))
	require.True(t, xerrors.Is(err, account.ErrNotFound))

	err = cmd.castVote(fake.NewBadSnapshot(), makeVoteStep(t, voter, 0, 0, ""))
	require.EqualError(t, err, fake.Err("failed to load election: failed to read account"))

	snap := fake.NewSnapshot()
	require.NoError(t, cmd.initElection(snap, makeInitStep(t, voter, []string{"A"}, 0, 10)))

	snap.ErrWrite = fake.GetError()
	err = cmd.castVote(snap, makeVoteStep(t, voter, 5, 0, ""))
	require.EqualError(t, err, fake.Err("failed to store election: failed to write account"))

	snap.ErrWrite = nil
	err = snap.Set(types.VoterAddress(marshalIdentity(t, voter), electionID), []byte(`{}`))
	require.NoError(t, err)

	err = cmd.castVote(snap, makeVoteStep(t, voter, 5, 0, ""))
	require.EqualError(t, err, "failed to decode voter: couldn't decode record: message is empty")
}

func TestCommand_EndElection(t *testing.T) {
	contract := NewContract()
	cmd := evotingCommand{Contract: &contract}

	authority := ed25519.NewSigner()
	snap := fake.NewSnapshot()

	err := cmd.initElection(snap, makeInitStep(t, authority, []string{"Alice"}, 100, 200))
	require.NoError(t, err)

	err = cmd.endElection(snap, makeEndStep(t, ed25519.NewSigner()))
	require.Equal(t, types.ErrUnauthorized, err)
	require.True(t, readElection(t, snap).IsActive)

	err = cmd.endElection(snap, makeEndStep(t, authority))
	require.NoError(t, err)
	require.False(t, readElection(t, snap).IsActive)

	// Ending twice is accepted and keeps the election inactive.
	err = cmd.endElection(snap, makeEndStep(t, authority))
	require.NoError(t, err)
	require.False(t, readElection(t, snap).IsActive)

	err = cmd.endElection(snap, makeStep(t, authority, 0))
	require.EqualError(t, err, "'evoting:election_id' not found in tx arg")

	err = cmd.endElection(fake.NewSnapshot(), makeEndStep(t, authority))
	require.True(t, xerrors.Is(err, account.ErrNotFound))

	snap.ErrWrite = fake.GetError()
	err = cmd.endElection(snap, makeEndStep(t, authority))
	require.EqualError(t, err, fake.Err("failed to store election: failed to write account"))
}

func TestContract_Scenarios(t *testing.T) {
	contract := NewContract()

	authority := ed25519.NewSigner()
	v1 := ed25519.NewSigner()
	snap := fake.NewSnapshot()

	err := contract.Execute(snap, makeInitStep(t, authority, []string{"Alice", "Bob"}, 100, 200))
	require.NoError(t, err)

	// A: a first vote is counted.
	err = contract.Execute(snap, makeVoteStep(t, v1, 150, 0, "v1"))
	require.NoError(t, err)

	election := readElection(t, snap)
	require.Equal(t, []uint32{1, 0}, election.Votes)
	require.Equal(t, uint32(1), election.TotalVoters)
	require.True(t, readVoter(t, snap, v1).HasVoted)

	// B: a second vote of the same voter is refused.
	err = contract.Execute(snap, makeVoteStep(t, v1, 160, 0, "v1"))
	require.True(t, xerrors.Is(err, types.ErrAlreadyVoted))
	require.EqualError(t, err, "failed to CAST_VOTE: You have already voted in this election")
	require.Equal(t, []uint32{1, 0}, readElection(t, snap).Votes)

	// C: a vote after the window is refused.
	late := ed25519.NewSigner()

	err = contract.Execute(snap, makeVoteStep(t, late, 250, 0, ""))
	require.True(t, xerrors.Is(err, types.ErrElectionNotInProgress))
	require.Equal(t, []uint32{1, 0}, readElection(t, snap).Votes)
	requireNoVoter(t, snap, late)

	// D: an unknown candidate is refused.
	lost := ed25519.NewSigner()

	err = contract.Execute(snap, makeVoteStep(t, lost, 150, 5, ""))
	require.True(t, xerrors.Is(err, types.ErrInvalidCandidate))
	require.Equal(t, []uint32{1, 0}, readElection(t, snap).Votes)
	requireNoVoter(t, snap, lost)

	// E: only the authority can end the election.
	err = contract.Execute(snap, makeEndStep(t, v1))
	require.True(t, xerrors.Is(err, types.ErrUnauthorized))

	err = contract.Execute(snap, makeVoteStep(t, ed25519.NewSigner(), 150, 1, ""))
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 1}, readElection(t, snap).Votes)

	// F: the authority ends the election and the votes are refused.
	err = contract.Execute(snap, makeEndStep(t, authority))
	require.NoError(t, err)
	require.False(t, readElection(t, snap).IsActive)

	closed := ed25519.NewSigner()

	err = contract.Execute(snap, makeVoteStep(t, closed, 150, 1, ""))
	require.True(t, xerrors.Is(err, types.ErrElectionNotActive))
	requireNoVoter(t, snap, closed)

	election = readElection(t, snap)
	require.Equal(t, []uint32{1, 1}, election.Votes)
	require.Equal(t, uint32(2), election.TotalVoters)
}

func TestContract_SumInvariant(t *testing.T) {
	contract := NewContract()

	authority := ed25519.NewSigner()
	snap := fake.NewSnapshot()

	err := contract.Execute(snap, makeInitStep(t, authority, []string{"A", "B", "C", "D"}, 0, 1000))
	require.NoError(t, err)

	voters := make([]crypto.Signer, 20)
	for i := range voters {
		voters[i] = ed25519.NewSigner()
	}

	for round := 0; round < 2; round++ {
		for i, voter := range voters {
			// Every vote is tried at least twice and some are out of range.
			_ = contract.Execute(snap, makeVoteStep(t, voter, int64(i*50), uint8(i%6), ""))

			election := readElection(t, snap)

			sum := uint32(0)
			for _, count := range election.Votes {
				sum += count
			}

			require.Equal(t, election.TotalVoters, sum)
		}
	}

	// Only the votes for the four candidates in the window are counted.
	election := readElection(t, snap)
	require.Equal(t, uint32(14), election.TotalVoters)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeStep(t *testing.T, signer crypto.Signer, now int64, args ...string) execution.Step {
	opts := []signed.TransactionOption{}
	for i := 0; i < len(args)-1; i += 2 {
		opts = append(opts, signed.WithArg(args[i], []byte(args[i+1])))
	}

	tx, err := signed.NewTransaction(0, signer.GetPublicKey(), opts...)
	require.NoError(t, err)

	return execution.Step{Current: tx, Time: now}
}

func makeInitStep(t *testing.T, signer crypto.Signer, candidates []string, start, end int64) execution.Step {
	data, err := recordContext.Marshal(candidates)
	require.NoError(t, err)

	return makeStep(t, signer, 0,
		CmdArg, string(CmdInitElection),
		ElectionIDArg, string(electionID),
		NameArg, "Board",
		CandidatesArg, string(data),
		StartArg, itoa(start),
		EndArg, itoa(end))
}

func makeVoteStep(t *testing.T, signer crypto.Signer, now int64, candidate uint8, hash string) execution.Step {
	return makeStep(t, signer, now,
		CmdArg, string(CmdCastVote),
		ElectionIDArg, string(electionID),
		CandidateArg, itoa(int64(candidate)),
		HashArg, hash)
}

func makeEndStep(t *testing.T, signer crypto.Signer) execution.Step {
	return makeStep(t, signer, 0,
		CmdArg, string(CmdEndElection),
		ElectionIDArg, string(electionID))
}

func readElection(t *testing.T, r store.Readable) types.Election {
	election, err := loadElection(recordContext, recordFactory, r, electionID)
	require.NoError(t, err)

	return election
}

func readVoter(t *testing.T, r store.Readable, signer crypto.Signer) types.Voter {
	addr := types.VoterAddress(marshalIdentity(t, signer), electionID)

	voter, err := loadVoter(recordContext, recordFactory, r, addr)
	require.NoError(t, err)

	return voter
}

func requireNoVoter(t *testing.T, r store.Readable, signer crypto.Signer) {
	addr := types.VoterAddress(marshalIdentity(t, signer), electionID)

	_, err := loadVoter(recordContext, recordFactory, r, addr)
	require.True(t, xerrors.Is(err, account.ErrNotFound))
}

func marshalIdentity(t *testing.T, signer crypto.Signer) []byte {
	data, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	return data
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

type fakeCmd struct {
	err error
}

func (c fakeCmd) initElection(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) castVote(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) endElection(snap store.Snapshot, step execution.Step) error {
	return c.err
}
