package controller

import (
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/proxy"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

const maxBodySize = 1 << 20

// StatusJSON is the response of the status of the ledger.
type StatusJSON struct {
	Index uint64 `json:"index"`
	Time  int64  `json:"time"`
	Hash  string `json:"hash"`
}

// ResultJSON is a transaction of a block in a response.
type ResultJSON struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// BlockJSON is the response of a block.
type BlockJSON struct {
	Index    uint64       `json:"index"`
	Time     int64        `json:"time"`
	Previous string       `json:"previous"`
	Hash     string       `json:"hash"`
	Results  []ResultJSON `json:"results"`
}

// ReceiptJSON is the response of a submitted transaction.
type ReceiptJSON struct {
	ID       string `json:"id"`
	Index    uint64 `json:"index"`
	Time     int64  `json:"time"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

type handlers struct {
	ledger  ledger.Ledger
	context serde.Context
	txFac   txn.Factory
}

func registerHandlers(p proxy.Proxy, l ledger.Ledger) {
	h := handlers{
		ledger:  l,
		context: json.NewContext(),
		txFac:   signed.NewTransactionFactory(),
	}

	p.RegisterHandler("/ledger/status", h.status, http.MethodGet)
	p.RegisterHandler("/ledger/blocks/{index:[0-9]+}", h.block, http.MethodGet)
	p.RegisterHandler("/ledger/transactions", h.submit, http.MethodPost)
}

func (h handlers) status(w http.ResponseWriter, r *http.Request) {
	status := h.ledger.GetStatus()

	proxy.RespondJSON(w, http.StatusOK, StatusJSON{
		Index: status.Index,
		Time:  status.Time,
		Hash:  hex.EncodeToString(status.Hash),
	})
}

func (h handlers) block(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		proxy.RespondError(w, http.StatusBadRequest, xerrors.Errorf("invalid index: %v", err))
		return
	}

	block, err := h.ledger.GetBlock(index)
	if xerrors.Is(err, ledger.ErrBlockNotFound) {
		proxy.RespondError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		proxy.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	resp := BlockJSON{
		Index:    block.GetIndex(),
		Time:     block.GetTime(),
		Previous: hex.EncodeToString(block.GetPrevious()),
		Hash:     hex.EncodeToString(block.GetHash()),
		Results:  make([]ResultJSON, 0, len(block.GetResults())),
	}

	for _, res := range block.GetResults() {
		accepted, reason := res.GetStatus()

		resp.Results = append(resp.Results, ResultJSON{
			ID:       hex.EncodeToString(res.GetTransaction().GetID()),
			Accepted: accepted,
			Reason:   reason,
		})
	}

	proxy.RespondJSON(w, http.StatusOK, resp)
}

// submit decodes a signed transaction from the body and waits for its receipt.
// A refused transaction is not an error of the request and its receipt is
// returned with the reason.
func (h handlers) submit(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		proxy.RespondError(w, http.StatusBadRequest, xerrors.Errorf("failed to read body: %v", err))
		return
	}

	tx, err := h.txFac.TransactionOf(h.context, data)
	if err != nil {
		proxy.RespondError(w, http.StatusBadRequest, xerrors.Errorf("failed to decode tx: %v", err))
		return
	}

	receipt, err := h.ledger.Submit(r.Context(), tx)
	if err != nil {
		proxy.RespondError(w, http.StatusServiceUnavailable, xerrors.Errorf("failed to submit: %v", err))
		return
	}

	proxy.RespondJSON(w, http.StatusOK, ReceiptJSON{
		ID:       hex.EncodeToString(tx.GetID()),
		Index:    receipt.Index,
		Time:     receipt.Time,
		Accepted: receipt.Accepted,
		Message:  receipt.Message,
	})
}
