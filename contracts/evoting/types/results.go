package types

// CandidateResult is the tally of one candidate.
type CandidateResult struct {
	Name  string
	Votes uint32
}

// Results is the read view of the tally of an election.
type Results struct {
	Name        string
	Candidates  []CandidateResult
	TotalVoters uint32
	IsActive    bool
	StartTime   int64
	EndTime     int64
}

// NewResults returns the results of the election.
func NewResults(e Election) Results {
	candidates := make([]CandidateResult, len(e.Candidates))

	for i, name := range e.Candidates {
		candidates[i] = CandidateResult{
			Name:  name,
			Votes: e.Votes[i],
		}
	}

	return Results{
		Name:        e.Name,
		Candidates:  candidates,
		TotalVoters: e.TotalVoters,
		IsActive:    e.IsActive,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
	}
}
