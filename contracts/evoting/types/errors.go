package types

import "golang.org/x/xerrors"

var (
	// ErrElectionNotActive is returned when voting in an election that has
	// been ended.
	ErrElectionNotActive = xerrors.New("The election is not active")

	// ErrElectionNotInProgress is returned when voting outside of the voting
	// window.
	ErrElectionNotInProgress = xerrors.New("The election is not in progress")

	// ErrAlreadyVoted is returned when a voter votes a second time in the same
	// election.
	ErrAlreadyVoted = xerrors.New("You have already voted in this election")

	// ErrInvalidCandidate is returned when the candidate index is out of
	// range.
	ErrInvalidCandidate = xerrors.New("Invalid candidate index")

	// ErrUnauthorized is returned when an identity other than the authority
	// tries to end the election.
	ErrUnauthorized = xerrors.New("Unauthorized to perform this action")
)
