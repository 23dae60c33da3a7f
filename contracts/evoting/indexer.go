package evoting

import (
	"context"
	"encoding/binary"
	"sort"

	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/ledger/types"
	"go.dedis.ch/ballot/core/store/kv"
	"golang.org/x/xerrors"
)

var (
	indexBucket     = []byte("evoting:elections")
	indexMetaBucket = []byte("evoting:meta")

	lastKey = []byte("last")
)

// Indexer keeps the list of the elections created on the ledger. It follows
// the committed blocks and records the identifier of every accepted election
// initialization in its own bucket of the database.
type Indexer struct {
	db     kv.DB
	ledger ledger.Ledger
	logger zerolog.Logger

	last   uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIndexer returns a new indexer for the ledger. The database can be the one
// of the ledger as the indexer uses separate buckets.
func NewIndexer(db kv.DB, l ledger.Ledger) *Indexer {
	return &Indexer{
		db:     db,
		ledger: l,
		logger: ballot.Logger.With().Str("component", "evoting-indexer").Logger(),
	}
}

// Start indexes the blocks committed since the last run and then follows the
// new blocks until the indexer is stopped.
func (idx *Indexer) Start() error {
	last, err := idx.readLast()
	if err != nil {
		return xerrors.Errorf("failed to read last index: %v", err)
	}

	idx.last = last

	ctx, cancel := context.WithCancel(context.Background())

	// Watch before catching up so that no block is missed in between.
	events := idx.ledger.Watch(ctx)

	err = idx.catchUp(idx.ledger.GetStatus().Index)
	if err != nil {
		cancel()
		return xerrors.Errorf("failed to catch up: %v", err)
	}

	idx.cancel = cancel
	idx.done = make(chan struct{})

	go idx.listen(ctx, events)

	idx.logger.Info().Uint64("index", idx.last).Msg("indexer started")

	return nil
}

// Stop stops following the ledger.
func (idx *Indexer) Stop() {
	if idx.cancel == nil {
		return
	}

	idx.cancel()
	<-idx.done

	idx.cancel = nil
}

// List returns the identifiers of the elections in the order of creation.
func (idx *Indexer) List() ([][]byte, error) {
	type entry struct {
		id    []byte
		index uint64
	}

	var entries []entry

	err := idx.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(indexBucket)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			entries = append(entries, entry{
				id:    append([]byte{}, k...),
				index: binary.BigEndian.Uint64(v),
			})

			return nil
		})
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read index: %v", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].index < entries[j].index
	})

	ids := make([][]byte, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}

	return ids, nil
}

func (idx *Indexer) listen(ctx context.Context, events <-chan ledger.Event) {
	defer close(idx.done)

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			err := idx.handle(evt.Block)
			if err != nil {
				idx.logger.Err(err).Uint64("index", evt.Block.GetIndex()).Msg("failed to index block")
			}
		}
	}
}

func (idx *Indexer) handle(block types.Block) error {
	if block.GetIndex() <= idx.last {
		return nil
	}

	err := idx.catchUp(block.GetIndex() - 1)
	if err != nil {
		return xerrors.Errorf("failed to catch up: %v", err)
	}

	return idx.index(block)
}

func (idx *Indexer) catchUp(to uint64) error {
	for i := idx.last + 1; i <= to; i++ {
		block, err := idx.ledger.GetBlock(i)
		if err != nil {
			return xerrors.Errorf("failed to read block: %v", err)
		}

		err = idx.index(block)
		if err != nil {
			return err
		}
	}

	return nil
}

func (idx *Indexer) index(block types.Block) error {
	var created, ended, votes int

	err := idx.db.Update(func(tx kv.WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(indexBucket)
		if err != nil {
			return xerrors.Errorf("index bucket: %v", err)
		}

		for _, res := range block.GetResults() {
			accepted, _ := res.GetStatus()
			t := res.GetTransaction()

			if !accepted || string(t.GetArg(ballot.ContractArg)) != ContractName {
				continue
			}

			switch Command(t.GetArg(CmdArg)) {
			case CmdInitElection:
				err = bucket.Set(t.GetArg(ElectionIDArg), indexKey(block.GetIndex()))
				if err != nil {
					return xerrors.Errorf("failed to set election: %v", err)
				}

				created++
			case CmdCastVote:
				votes++
			case CmdEndElection:
				ended++
			}
		}

		meta, err := tx.GetBucketOrCreate(indexMetaBucket)
		if err != nil {
			return xerrors.Errorf("meta bucket: %v", err)
		}

		return meta.Set(lastKey, indexKey(block.GetIndex()))
	})
	if err != nil {
		return xerrors.Errorf("failed to index block %d: %v", block.GetIndex(), err)
	}

	idx.last = block.GetIndex()

	promElections.WithLabelValues("created").Add(float64(created))
	promElections.WithLabelValues("ended").Add(float64(ended))
	promVotes.Add(float64(votes))

	if created > 0 {
		idx.logger.Debug().
			Uint64("index", block.GetIndex()).
			Int("elections", created).
			Msg("elections indexed")
	}

	return nil
}

func (idx *Indexer) readLast() (uint64, error) {
	var last uint64

	err := idx.db.View(func(tx kv.ReadableTx) error {
		meta := tx.GetBucket(indexMetaBucket)
		if meta == nil {
			return nil
		}

		value := meta.Get(lastKey)
		if len(value) == 8 {
			last = binary.BigEndian.Uint64(value)
		}

		return nil
	})

	return last, err
}

func indexKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)

	return key
}
