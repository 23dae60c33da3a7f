package evoting

import (
	"bytes"
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/contracts/evoting/types"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store"
	"golang.org/x/xerrors"
)

const defaultExpiryPeriod = time.Minute

// Expirer periodically ends the active elections of an authority once their
// voting window is over.
type Expirer struct {
	client    *Client
	ledger    ledger.Ledger
	indexer   *Indexer
	authority []byte
	clock     clock.Clock
	period    time.Duration
	logger    zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// ExpirerOption is the type of option to configure the expirer.
type ExpirerOption func(*Expirer)

// WithExpirerClock is an option to set the clock of the expirer.
func WithExpirerClock(c clock.Clock) ExpirerOption {
	return func(e *Expirer) {
		e.clock = c
	}
}

// WithPeriod is an option to set the period between two sweeps.
func WithPeriod(d time.Duration) ExpirerOption {
	return func(e *Expirer) {
		e.period = d
	}
}

// NewExpirer returns a new expirer that ends the elections of the authority
// using the client. The authority must be the identity of the client.
func NewExpirer(client *Client, l ledger.Ledger, indexer *Indexer,
	authority []byte, opts ...ExpirerOption) *Expirer {

	e := &Expirer{
		client:    client,
		ledger:    l,
		indexer:   indexer,
		authority: authority,
		clock:     clock.New(),
		period:    defaultExpiryPeriod,
		logger:    ballot.Logger.With().Str("component", "evoting-expirer").Logger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start starts the routine that sweeps the elections every period.
func (e *Expirer) Start() {
	ctx, cancel := context.WithCancel(context.Background())

	e.cancel = cancel
	e.done = make(chan struct{})

	ticker := e.clock.Ticker(e.period)

	go func() {
		defer close(e.done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, err := e.Sweep(ctx)
				if err != nil {
					e.logger.Warn().Err(err).Msg("sweep failed")
				}
			}
		}
	}()

	e.logger.Info().Dur("period", e.period).Msg("expirer started")
}

// Stop stops the routine and waits for the current sweep to finish.
func (e *Expirer) Stop() {
	if e.cancel == nil {
		return
	}

	e.cancel()
	<-e.done

	e.cancel = nil
}

// Sweep ends the active elections of the authority whose voting window is over
// and returns the number of elections ended.
func (e *Expirer) Sweep(ctx context.Context) (int, error) {
	ids, err := e.indexer.List()
	if err != nil {
		return 0, xerrors.Errorf("failed to list elections: %v", err)
	}

	now := e.clock.Now().Unix()

	var expired [][]byte

	err = e.ledger.View(func(r store.Readable) error {
		for _, id := range ids {
			election, err := GetElection(r, id)
			if err != nil {
				return xerrors.Errorf("election %#x: %v", id, err)
			}

			if e.isExpired(election, now) {
				expired = append(expired, id)
			}
		}

		return nil
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read elections: %v", err)
	}

	count := 0

	for _, id := range expired {
		_, err := e.client.EndElection(ctx, id)
		if err != nil {
			e.logger.Warn().Err(err).Hex("election", id).Msg("failed to end election")
			continue
		}

		count++

		e.logger.Info().Hex("election", id).Msg("expired election ended")
	}

	return count, nil
}

func (e *Expirer) isExpired(election types.Election, now int64) bool {
	return election.IsActive && election.Expired(now) && bytes.Equal(election.Authority, e.authority)
}
