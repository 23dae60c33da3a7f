package evoting

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/ledger/types"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestIndexer_Scenario(t *testing.T) {
	srvc, db := newLedger(t, clock.NewMock())

	ctx := context.Background()
	client := newClient(srvc, ed25519.NewSigner())

	_, err := client.InitElection(ctx, []byte("A"), "A", nil, 0, 10)
	require.NoError(t, err)

	// A refused initialization is not indexed.
	_, err = client.InitElection(ctx, []byte("A"), "A", nil, 0, 10)
	require.Error(t, err)

	indexer := NewIndexer(db, srvc)
	require.NoError(t, indexer.Start())

	ids, err := indexer.List()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("A")}, ids)

	_, err = client.InitElection(ctx, []byte("0"), "B", nil, 0, 10)
	require.NoError(t, err)

	_, err = client.EndElection(ctx, []byte("A"))
	require.NoError(t, err)

	// Elections are listed in the order of creation.
	require.Eventually(t, func() bool {
		ids, err := indexer.List()
		return err == nil && len(ids) == 2 && string(ids[1]) == "0"
	}, 5*time.Second, 10*time.Millisecond)

	indexer.Stop()
	indexer.Stop()

	_, err = client.InitElection(ctx, []byte("C"), "C", nil, 0, 10)
	require.NoError(t, err)

	// A restarted indexer catches up from the last indexed block.
	indexer = NewIndexer(db, srvc)
	require.NoError(t, indexer.Start())
	defer indexer.Stop()

	ids, err = indexer.List()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("A"), []byte("0"), []byte("C")}, ids)
}

func TestIndexer_Empty(t *testing.T) {
	srvc, db := newLedger(t, clock.NewMock())

	indexer := NewIndexer(db, srvc)

	ids, err := indexer.List()
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, indexer.Start())
	indexer.Stop()
}

func TestIndexer_Failures(t *testing.T) {
	srvc, db := newLedger(t, clock.NewMock())

	_, err := newClient(srvc, ed25519.NewSigner()).InitElection(context.Background(), electionID, "A", nil, 0, 1)
	require.NoError(t, err)

	indexer := NewIndexer(db, badLedger{Ledger: srvc})

	err = indexer.Start()
	require.EqualError(t, err, fake.Err("failed to catch up: failed to read block"))

	indexer = NewIndexer(badDB{DB: db}, srvc)

	err = indexer.Start()
	require.EqualError(t, err, fake.Err("failed to read last index"))

	_, err = indexer.List()
	require.EqualError(t, err, fake.Err("failed to read index"))
}

// -----------------------------------------------------------------------------
// Utility functions

type badLedger struct {
	ledger.Ledger
}

func (badLedger) GetBlock(uint64) (types.Block, error) {
	return types.Block{}, fake.GetError()
}

type badDB struct {
	kv.DB
}

func (badDB) View(func(kv.ReadableTx) error) error {
	return fake.GetError()
}
