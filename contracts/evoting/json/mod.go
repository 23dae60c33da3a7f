// Package json implements the JSON format of the records of the election
// contract.
package json

import (
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterRecordFormat(serde.FormatJSON, recordFormat{})
}

// ElectionJSON is the JSON message of an election record.
type ElectionJSON struct {
	Authority   []byte
	Name        string
	Candidates  []string
	Votes       []uint32
	StartTime   int64
	EndTime     int64
	IsActive    bool
	TotalVoters uint32
}

// VoterJSON is the JSON message of a voter record.
type VoterJSON struct {
	HasVoted         bool
	VerificationHash string
}

// RecordJSON is the JSON message that wraps the different records of the
// contract. Only one field is set.
type RecordJSON struct {
	Election *ElectionJSON `json:",omitempty"`
	Voter    *VoterJSON    `json:",omitempty"`
}

// recordFormat is the JSON format engine of the records.
//
// - implements serde.FormatEngine
type recordFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the record
// if appropriate, otherwise an error.
func (f recordFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	var m RecordJSON

	switch record := msg.(type) {
	case types.Election:
		if len(record.Votes) != len(record.Candidates) {
			return nil, xerrors.Errorf("mismatch votes and candidates: %d != %d",
				len(record.Votes), len(record.Candidates))
		}

		m.Election = &ElectionJSON{
			Authority:   record.Authority,
			Name:        record.Name,
			Candidates:  record.Candidates,
			Votes:       record.Votes,
			StartTime:   record.StartTime,
			EndTime:     record.EndTime,
			IsActive:    record.IsActive,
			TotalVoters: record.TotalVoters,
		}
	case types.Voter:
		m.Voter = &VoterJSON{
			HasVoted:         record.HasVoted,
			VerificationHash: record.VerificationHash,
		}
	default:
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It returns the record of the JSON data
// if appropriate, otherwise an error.
func (f recordFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := RecordJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	switch {
	case m.Election != nil:
		if len(m.Election.Votes) != len(m.Election.Candidates) {
			return nil, xerrors.Errorf("mismatch votes and candidates: %d != %d",
				len(m.Election.Votes), len(m.Election.Candidates))
		}

		election := types.Election{
			Authority:   m.Election.Authority,
			Name:        m.Election.Name,
			Candidates:  m.Election.Candidates,
			Votes:       m.Election.Votes,
			StartTime:   m.Election.StartTime,
			EndTime:     m.Election.EndTime,
			IsActive:    m.Election.IsActive,
			TotalVoters: m.Election.TotalVoters,
		}

		return election, nil
	case m.Voter != nil:
		voter := types.Voter{
			HasVoted:         m.Voter.HasVoted,
			VerificationHash: m.Voter.VerificationHash,
		}

		return voter, nil
	}

	return nil, xerrors.New("message is empty")
}
