package evoting

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/ballot"
)

var promElections = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ballot_evoting_elections_total",
	Help: "number of committed election transitions",
}, []string{"event"})

var promVotes = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "ballot_evoting_votes_total",
	Help: "number of committed votes",
})

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promElections, promVotes)
}
