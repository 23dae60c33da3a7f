package evoting

import (
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/core/account"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/prefixed"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

var (
	recordContext = json.NewContext()
	recordFactory = types.NewRecordFactory()
)

// GetElection returns the election record of the identifier. The readable is
// expected to be the global state of the ledger.
func GetElection(r store.Readable, electionID []byte) (types.Election, error) {
	return loadElection(recordContext, recordFactory, prefixed.NewReadable(ContractName, r), electionID)
}

// GetVoter returns the voter record of the voter in the election. The error
// wraps account.ErrNotFound if the voter has never voted.
func GetVoter(r store.Readable, electionID []byte, voter []byte) (types.Voter, error) {
	addr := types.VoterAddress(voter, electionID)

	return loadVoter(recordContext, recordFactory, prefixed.NewReadable(ContractName, r), addr)
}

// Results returns the tally of the election.
func Results(r store.Readable, electionID []byte) (types.Results, error) {
	election, err := GetElection(r, electionID)
	if err != nil {
		return types.Results{}, err
	}

	return types.NewResults(election), nil
}

// VerifyVote returns true if the voter has voted in the election with the
// given verification hash.
func VerifyVote(r store.Readable, electionID []byte, voter []byte, hash string) (bool, error) {
	record, err := GetVoter(r, electionID, voter)
	if xerrors.Is(err, account.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return record.HasVoted && record.VerificationHash == hash, nil
}
