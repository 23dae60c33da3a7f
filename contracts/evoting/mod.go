// Package evoting implements a native contract to run elections controlled by
// a single authority.
//
// An authority initializes an election with a list of candidates and a voting
// window. Any identity can then vote once for a candidate while the election
// is active and in progress. Only the authority can end the election.
package evoting

import (
	"bytes"
	"strconv"

	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/core/account"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

// commands defines the commands of the election contract. This interface helps
// in testing the contract.
type commands interface {
	initElection(snap store.Snapshot, step execution.Step) error
	castVote(snap store.Snapshot, step execution.Step) error
	endElection(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/ballot.EVoting"

	// ContractUID is the unique identifier of the contract.
	ContractUID = "EVOT"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "evoting:command"

	// ElectionIDArg is the argument's name in the transaction that contains
	// the identifier of the election.
	ElectionIDArg = "evoting:election_id"

	// NameArg is the argument's name in the transaction that contains the name
	// of a new election.
	NameArg = "evoting:name"

	// CandidatesArg is the argument's name in the transaction that contains
	// the JSON list of candidates of a new election.
	CandidatesArg = "evoting:candidates"

	// StartArg is the argument's name in the transaction that contains the
	// start of the voting window in unix seconds.
	StartArg = "evoting:start"

	// EndArg is the argument's name in the transaction that contains the end
	// of the voting window in unix seconds.
	EndArg = "evoting:end"

	// CandidateArg is the argument's name in the transaction that contains the
	// index of the chosen candidate.
	CandidateArg = "evoting:candidate"

	// HashArg is the argument's name in the transaction that contains the
	// verification hash of a vote.
	HashArg = "evoting:hash"
)

// Command defines a type of command for the election contract.
type Command string

const (
	// CmdInitElection defines the command to create an election.
	CmdInitElection Command = "INIT_ELECTION"

	// CmdCastVote defines the command to vote in an election.
	CmdCastVote Command = "CAST_VOTE"

	// CmdEndElection defines the command to end an election.
	CmdEndElection Command = "END_ELECTION"
)

// RegisterContract registers the election contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the election contract.
//
// - implements native.Contract
type Contract struct {
	cmd     commands
	context serde.Context
	factory types.RecordFactory
	logger  zerolog.Logger
}

// NewContract creates a new election contract.
func NewContract() Contract {
	contract := Contract{
		context: json.NewContext(),
		factory: types.NewRecordFactory(),
		logger:  ballot.Logger.With().Str("contract", "evoting").Logger(),
	}

	contract.cmd = evotingCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract. It returns the unique identifier of the
// contract.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdInitElection:
		err := c.cmd.initElection(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to INIT_ELECTION: %w", err)
		}
	case CmdCastVote:
		err := c.cmd.castVote(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to CAST_VOTE: %w", err)
		}
	case CmdEndElection:
		err := c.cmd.endElection(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to END_ELECTION: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// evotingCommand implements the commands of the election contract.
//
// - implements commands
type evotingCommand struct {
	*Contract
}

// initElection implements commands. It creates the record of a new election
// owned by the signer of the transaction.
func (e evotingCommand) initElection(snap store.Snapshot, step execution.Step) error {
	id := step.Current.GetArg(ElectionIDArg)
	if len(id) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", ElectionIDArg)
	}

	var candidates []string

	err := e.context.Unmarshal(step.Current.GetArg(CandidatesArg), &candidates)
	if err != nil {
		return xerrors.Errorf("failed to decode candidates: %v", err)
	}

	start, err := readTime(step, StartArg)
	if err != nil {
		return err
	}

	end, err := readTime(step, EndArg)
	if err != nil {
		return err
	}

	authority, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	name := string(step.Current.GetArg(NameArg))

	election := types.NewElection(authority, name, candidates, start, end)

	data, err := election.Serialize(e.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize election: %v", err)
	}

	// The tally must fit the record whatever the number of votes.
	size, err := election.MaxSize(e.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize election: %v", err)
	}

	if size > types.ElectionSpace {
		return xerrors.Errorf("failed to allocate election: %d > %d: %w",
			size, types.ElectionSpace, account.ErrSpaceExceeded)
	}

	err = account.Allocate(snap, types.ElectionAddress(id), data, types.ElectionSpace)
	if err != nil {
		return xerrors.Errorf("failed to allocate election: %w", err)
	}

	e.logger.Info().
		Hex("election", id).
		Str("name", name).
		Int("candidates", len(candidates)).
		Int64("start", start).
		Int64("end", end).
		Msg("election initialized")

	return nil
}

// castVote implements commands. It records the vote of the signer for the
// candidate of the transaction. The checks are performed in a fixed order and
// the first failing one is returned.
func (e evotingCommand) castVote(snap store.Snapshot, step execution.Step) error {
	id := step.Current.GetArg(ElectionIDArg)
	if len(id) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", ElectionIDArg)
	}

	index, err := strconv.ParseUint(string(step.Current.GetArg(CandidateArg)), 10, 8)
	if err != nil {
		return xerrors.Errorf("invalid candidate argument: %v", err)
	}

	hash := string(step.Current.GetArg(HashArg))

	election, err := loadElection(e.context, e.factory, snap, id)
	if err != nil {
		return err
	}

	voterKey, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	voterAddr := types.VoterAddress(voterKey, id)

	voter, err := loadVoter(e.context, e.factory, snap, voterAddr)
	if err != nil && !xerrors.Is(err, account.ErrNotFound) {
		return err
	}

	if !election.IsActive {
		return types.ErrElectionNotActive
	}

	if !election.InProgress(step.Time) {
		return types.ErrElectionNotInProgress
	}

	if voter.HasVoted {
		return types.ErrAlreadyVoted
	}

	if int(index) >= len(election.Candidates) {
		return types.ErrInvalidCandidate
	}

	election.Votes[index]++
	election.TotalVoters++

	voter.HasVoted = true
	voter.VerificationHash = hash

	err = e.store(snap, types.ElectionAddress(id), election, types.ElectionSpace)
	if err != nil {
		return xerrors.Errorf("failed to store election: %w", err)
	}

	err = e.store(snap, voterAddr, voter, types.VoterSpace)
	if err != nil {
		return xerrors.Errorf("failed to store voter: %w", err)
	}

	e.logger.Info().
		Hex("election", id).
		Uint64("candidate", index).
		Uint32("total", election.TotalVoters).
		Msg("vote cast")

	return nil
}

// endElection implements commands. It deactivates the election if the signer
// is the authority of the election.
func (e evotingCommand) endElection(snap store.Snapshot, step execution.Step) error {
	id := step.Current.GetArg(ElectionIDArg)
	if len(id) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", ElectionIDArg)
	}

	election, err := loadElection(e.context, e.factory, snap, id)
	if err != nil {
		return err
	}

	signer, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	if !bytes.Equal(signer, election.Authority) {
		return types.ErrUnauthorized
	}

	election.IsActive = false

	err = e.store(snap, types.ElectionAddress(id), election, types.ElectionSpace)
	if err != nil {
		return xerrors.Errorf("failed to store election: %w", err)
	}

	e.logger.Info().Hex("election", id).Msg("election ended")

	return nil
}

func (e evotingCommand) store(snap store.Snapshot, addr []byte, msg serde.Message, space int) error {
	data, err := msg.Serialize(e.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	return account.Store(snap, addr, data, space)
}

func readTime(step execution.Step, key string) (int64, error) {
	value, err := strconv.ParseInt(string(step.Current.GetArg(key)), 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("invalid '%s' argument: %v", key, err)
	}

	return value, nil
}

func loadElection(ctx serde.Context, fac types.RecordFactory,
	r store.Readable, id []byte) (types.Election, error) {

	data, err := account.Load(r, types.ElectionAddress(id))
	if err != nil {
		return types.Election{}, xerrors.Errorf("failed to load election: %w", err)
	}

	election, err := fac.ElectionOf(ctx, data)
	if err != nil {
		return types.Election{}, xerrors.Errorf("failed to decode election: %v", err)
	}

	return election, nil
}

// loadVoter returns the voter record at the address, or an empty record and an
// error wrapping account.ErrNotFound when the voter has never been stored.
func loadVoter(ctx serde.Context, fac types.RecordFactory,
	r store.Readable, addr []byte) (types.Voter, error) {

	data, err := account.Load(r, addr)
	if err != nil {
		return types.Voter{}, xerrors.Errorf("failed to load voter: %w", err)
	}

	voter, err := fac.VoterOf(ctx, data)
	if err != nil {
		return types.Voter{}, xerrors.Errorf("failed to decode voter: %v", err)
	}

	return voter, nil
}
