package controller

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.dedis.ch/ballot/contracts/evoting"
	"go.dedis.ch/ballot/core/account"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/proxy"
	"golang.org/x/xerrors"
)

const maxBodySize = 1 << 16

// CandidateJSON is the tally of a candidate in a response.
type CandidateJSON struct {
	Name  string `json:"name"`
	Votes uint32 `json:"votes"`
}

// ElectionJSON is the response of the results of an election.
type ElectionJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Candidates  []CandidateJSON `json:"candidates"`
	TotalVoters uint32          `json:"totalVoters"`
	IsActive    bool            `json:"isActive"`
	StartTime   int64           `json:"startTime"`
	EndTime     int64           `json:"endTime"`
}

// VoterJSON is the response of the record of a voter.
type VoterJSON struct {
	HasVoted         bool   `json:"hasVoted"`
	VerificationHash string `json:"verificationHash"`
}

// VerifyRequestJSON is the request to verify the vote of a voter.
type VerifyRequestJSON struct {
	Election string `json:"election"`
	Voter    string `json:"voter"`
	Hash     string `json:"hash"`
}

// VerifyJSON is the response of a verification.
type VerifyJSON struct {
	Verified bool `json:"verified"`
}

type handlers struct {
	ledger  ledger.Ledger
	indexer *evoting.Indexer
}

func registerHandlers(p proxy.Proxy, l ledger.Ledger, indexer *evoting.Indexer) {
	h := handlers{
		ledger:  l,
		indexer: indexer,
	}

	p.RegisterHandler("/evoting/elections", h.list, http.MethodGet)
	p.RegisterHandler("/evoting/elections/{id}", h.election, http.MethodGet)
	p.RegisterHandler("/evoting/elections/{id}/voters/{voter}", h.voter, http.MethodGet)
	p.RegisterHandler("/evoting/verify", h.verify, http.MethodPost)
}

func (h handlers) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := listElections(h.ledger, h.indexer)
	if err != nil {
		proxy.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	proxy.RespondJSON(w, http.StatusOK, summaries)
}

func (h handlers) election(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var resp ElectionJSON

	err := h.ledger.View(func(rd store.Readable) error {
		results, err := evoting.Results(rd, []byte(id))
		if err != nil {
			return err
		}

		resp = ElectionJSON{
			ID:          id,
			Name:        results.Name,
			Candidates:  make([]CandidateJSON, len(results.Candidates)),
			TotalVoters: results.TotalVoters,
			IsActive:    results.IsActive,
			StartTime:   results.StartTime,
			EndTime:     results.EndTime,
		}

		for i, c := range results.Candidates {
			resp.Candidates[i] = CandidateJSON{Name: c.Name, Votes: c.Votes}
		}

		return nil
	})

	if xerrors.Is(err, account.ErrNotFound) {
		proxy.RespondError(w, http.StatusNotFound, xerrors.Errorf("election '%s' not found", id))
		return
	}
	if err != nil {
		proxy.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	proxy.RespondJSON(w, http.StatusOK, resp)
}

func (h handlers) voter(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	voter, err := hex.DecodeString(vars["voter"])
	if err != nil {
		proxy.RespondError(w, http.StatusBadRequest, xerrors.Errorf("invalid voter: %v", err))
		return
	}

	var resp VoterJSON

	err = h.ledger.View(func(rd store.Readable) error {
		record, err := evoting.GetVoter(rd, []byte(vars["id"]), voter)
		if err != nil {
			return err
		}

		resp = VoterJSON{
			HasVoted:         record.HasVoted,
			VerificationHash: record.VerificationHash,
		}

		return nil
	})

	if xerrors.Is(err, account.ErrNotFound) {
		proxy.RespondError(w, http.StatusNotFound, xerrors.New("voter not found"))
		return
	}
	if err != nil {
		proxy.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	proxy.RespondJSON(w, http.StatusOK, resp)
}

func (h handlers) verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequestJSON

	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req)
	if err != nil {
		proxy.RespondError(w, http.StatusBadRequest, xerrors.Errorf("failed to decode request: %v", err))
		return
	}

	voter, err := hex.DecodeString(req.Voter)
	if err != nil {
		proxy.RespondError(w, http.StatusBadRequest, xerrors.Errorf("invalid voter: %v", err))
		return
	}

	var ok bool

	err = h.ledger.View(func(rd store.Readable) error {
		ok, err = evoting.VerifyVote(rd, []byte(req.Election), voter, req.Hash)
		return err
	})
	if err != nil {
		proxy.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	proxy.RespondJSON(w, http.StatusOK, VerifyJSON{Verified: ok})
}
