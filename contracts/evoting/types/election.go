// Package types defines the records of the election contract.
//
// An election record holds the immutable definition of an election together
// with its running tally. A voter record exists at most once per voter and
// per election and remembers whether the voter has voted.
package types

import (
	"math"

	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

const (
	// ElectionSpace is the maximum size of a serialized election record.
	ElectionSpace = 4096

	// VoterSpace is the maximum size of a serialized voter record.
	VoterSpace = 512
)

var recordFormats = registry.NewSimpleRegistry()

// RegisterRecordFormat registers the engine for the provided format.
func RegisterRecordFormat(f serde.Format, e serde.FormatEngine) {
	recordFormats.Register(f, e)
}

// Election is the record of an election.
//
// - implements serde.Message
type Election struct {
	// Authority is the marshaled public key of the creator. It is the only
	// identity allowed to end the election.
	Authority []byte

	Name       string
	Candidates []string

	// Votes has one counter per candidate.
	Votes []uint32

	// StartTime and EndTime are the inclusive bounds of the voting window in
	// unix seconds.
	StartTime int64
	EndTime   int64

	IsActive    bool
	TotalVoters uint32
}

// NewElection returns a new active election with zero votes for each of the
// candidates.
func NewElection(authority []byte, name string, candidates []string, start, end int64) Election {
	return Election{
		Authority:   authority,
		Name:        name,
		Candidates:  candidates,
		Votes:       make([]uint32, len(candidates)),
		StartTime:   start,
		EndTime:     end,
		IsActive:    true,
		TotalVoters: 0,
	}
}

// InProgress returns true if the time is inside the voting window.
func (e Election) InProgress(now int64) bool {
	return now >= e.StartTime && now <= e.EndTime
}

// Expired returns true if the voting window is over at the given time.
func (e Election) Expired(now int64) bool {
	return now > e.EndTime
}

// Serialize implements serde.Message. It returns the serialized data of the
// election.
func (e Election) Serialize(ctx serde.Context) ([]byte, error) {
	format := recordFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, e)
	if err != nil {
		return nil, xerrors.Errorf("couldn't encode election: %v", err)
	}

	return data, nil
}

// MaxSize returns the size of the serialized election once every counter has
// reached its maximum value. The record never grows beyond it.
func (e Election) MaxSize(ctx serde.Context) (int, error) {
	full := e
	full.Votes = make([]uint32, len(e.Candidates))
	full.TotalVoters = math.MaxUint32

	for i := range full.Votes {
		full.Votes[i] = math.MaxUint32
	}

	data, err := full.Serialize(ctx)
	if err != nil {
		return 0, err
	}

	return len(data), nil
}

// Voter is the record of a voter for one election.
//
// - implements serde.Message
type Voter struct {
	HasVoted bool

	// VerificationHash is the hash given by the voter when voting so that the
	// vote can be verified later.
	VerificationHash string
}

// Serialize implements serde.Message. It returns the serialized data of the
// voter.
func (v Voter) Serialize(ctx serde.Context) ([]byte, error) {
	format := recordFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, v)
	if err != nil {
		return nil, xerrors.Errorf("couldn't encode voter: %v", err)
	}

	return data, nil
}

// RecordFactory is the factory to deserialize the records of the contract.
//
// - implements serde.Factory
type RecordFactory struct{}

// NewRecordFactory returns a new record factory.
func NewRecordFactory() RecordFactory {
	return RecordFactory{}
}

// Deserialize implements serde.Factory. It returns either an election or a
// voter.
func (f RecordFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := recordFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("couldn't decode record: %v", err)
	}

	return msg, nil
}

// ElectionOf returns the election of the data.
func (f RecordFactory) ElectionOf(ctx serde.Context, data []byte) (Election, error) {
	msg, err := f.Deserialize(ctx, data)
	if err != nil {
		return Election{}, err
	}

	election, ok := msg.(Election)
	if !ok {
		return Election{}, xerrors.Errorf("invalid election of type '%T'", msg)
	}

	return election, nil
}

// VoterOf returns the voter of the data.
func (f RecordFactory) VoterOf(ctx serde.Context, data []byte) (Voter, error) {
	msg, err := f.Deserialize(ctx, data)
	if err != nil {
		return Voter{}, err
	}

	voter, ok := msg.(Voter)
	if !ok {
		return Voter{}, xerrors.Errorf("invalid voter of type '%T'", msg)
	}

	return voter, nil
}
