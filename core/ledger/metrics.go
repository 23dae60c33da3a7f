package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/ballot"
)

var promTransactions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ballot_ledger_transactions_total",
	Help: "number of transactions executed by the ledger",
}, []string{"status"})

var promBlocks = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "ballot_ledger_blocks_total",
	Help: "number of blocks committed by the ledger",
})

var promQueue = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "ballot_ledger_queue_length",
	Help: "number of transactions waiting to be executed",
})

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promTransactions, promBlocks, promQueue)
}
