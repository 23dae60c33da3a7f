package ledger

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/ledger/types"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/store/mem"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

const (
	defaultBatchSize = 100
	queueSize        = 1000
)

var (
	stateBucket = []byte("state")
	blockBucket = []byte("blocks")
	metaBucket  = []byte("meta")

	statusKey = []byte("status")
)

// ErrClosed is returned when the ledger is closed.
var ErrClosed = xerrors.New("ledger closed")

// ErrBlockNotFound is returned when a block does not exist.
var ErrBlockNotFound = xerrors.New("block not found")

type request struct {
	tx    txn.Transaction
	reply chan reply
}

type reply struct {
	receipt Receipt
	err     error
}

// Service is the implementation of a ledger over a key/value database.
//
// - implements ledger.Ledger
type Service struct {
	sync.Mutex

	db         kv.DB
	validation validation.Service
	clock      clock.Clock
	context    serde.Context
	blockFac   types.BlockFactory
	watcher    core.Observable
	logger     zerolog.Logger
	batchSize  int

	queue   chan request
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
	status  Status
	started bool
}

// Option is the type of option to configure the ledger.
type Option func(*Service)

// WithClock is an option to set the clock that stamps the blocks.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithBatchSize is an option to set the maximum number of transactions per
// block.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithValidation is an option to set a different validation service.
func WithValidation(v validation.Service) Option {
	return func(s *Service) {
		s.validation = v
	}
}

// NewService creates a new ledger that executes the transactions with the
// execution service. The status is restored from the database.
func NewService(db kv.DB, exec execution.Service, opts ...Option) (*Service, error) {
	s := &Service{
		db:         db,
		validation: simple.NewService(exec),
		clock:      clock.New(),
		context:    json.NewContext(),
		blockFac:   types.NewBlockFactory(signed.NewTransactionFactory()),
		watcher:    core.NewWatcher(),
		logger:     ballot.Logger.With().Str("component", "ledger").Logger(),
		batchSize:  defaultBatchSize,
		queue:      make(chan request, queueSize),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	err := db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(metaBucket)
		if bucket == nil {
			return nil
		}

		data := bucket.Get(statusKey)
		if data == nil {
			return nil
		}

		return s.context.Unmarshal(data, &s.status)
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read status: %v", err)
	}

	return s, nil
}

// Listen starts the routine that executes the transactions. It does nothing
// if the routine is already running.
func (s *Service) Listen() {
	s.Lock()
	defer s.Unlock()

	if s.started {
		return
	}

	s.started = true

	go s.loop()

	s.logger.Info().Uint64("index", s.status.Index).Msg("ledger is listening")
}

// Close stops the routine of the ledger. The transactions waiting in the queue
// are refused.
func (s *Service) Close() error {
	s.once.Do(func() {
		close(s.closing)
	})

	s.Lock()
	started := s.started
	s.Unlock()

	if started {
		<-s.done
	}

	return nil
}

// Submit implements ledger.Ledger. It queues the transaction and waits for the
// receipt of the block that contains it.
func (s *Service) Submit(ctx context.Context, tx txn.Transaction) (Receipt, error) {
	req := request{
		tx:    tx,
		reply: make(chan reply, 1),
	}

	if ctx.Err() != nil {
		return Receipt{}, xerrors.Errorf("context: %w", ctx.Err())
	}

	select {
	case <-s.closing:
		return Receipt{}, ErrClosed
	default:
	}

	select {
	case <-ctx.Done():
		return Receipt{}, xerrors.Errorf("context: %w", ctx.Err())
	case <-s.closing:
		return Receipt{}, ErrClosed
	case s.queue <- req:
	}

	select {
	case <-ctx.Done():
		return Receipt{}, xerrors.Errorf("context: %w", ctx.Err())
	case rep := <-req.reply:
		return rep.receipt, rep.err
	case <-s.done:
		// The routine might have replied right before stopping.
		select {
		case rep := <-req.reply:
			return rep.receipt, rep.err
		default:
			return Receipt{}, ErrClosed
		}
	}
}

// View implements ledger.Ledger. It runs the function in a read-only
// transaction of the database.
func (s *Service) View(fn func(store.Readable) error) error {
	return s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(stateBucket)
		if bucket == nil {
			return fn(mem.NewSnapshot(nil))
		}

		return fn(kv.NewSnapshot(bucket))
	})
}

// GetNonce implements ledger.Ledger and signed.Client. It returns the next
// nonce of the identity.
func (s *Service) GetNonce(ident access.Identity) (uint64, error) {
	var nonce uint64

	err := s.View(func(r store.Readable) error {
		var err error
		nonce, err = s.validation.GetNonce(r, ident)

		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// GetBlock implements ledger.Ledger. It reads and decodes the block at the
// index.
func (s *Service) GetBlock(index uint64) (types.Block, error) {
	var data []byte

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(blockBucket)
		if bucket == nil {
			return nil
		}

		value := bucket.Get(indexKey(index))
		if value != nil {
			data = append([]byte{}, value...)
		}

		return nil
	})
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to read block: %v", err)
	}

	if data == nil {
		return types.Block{}, xerrors.Errorf("block %d: %w", index, ErrBlockNotFound)
	}

	block, err := s.blockFac.BlockOf(s.context, data)
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to decode block: %v", err)
	}

	return block, nil
}

// GetStatus implements ledger.Ledger. It returns the status of the latest
// committed block.
func (s *Service) GetStatus() Status {
	s.Lock()
	defer s.Unlock()

	return s.status
}

// Watch implements ledger.Ledger. It returns a channel populated with the
// committed blocks until the context is done. The channel is never closed and
// the ledger waits for the reader, so it must be drained until the context is
// done.
func (s *Service) Watch(ctx context.Context) <-chan Event {
	obs := observer{ch: make(chan Event, 1), ctx: ctx}

	s.watcher.Add(obs)

	go func() {
		<-ctx.Done()
		s.watcher.Remove(obs)
	}()

	return obs.ch
}

func (s *Service) loop() {
	defer close(s.done)

	for {
		select {
		case <-s.closing:
			s.drain()
			return
		case req := <-s.queue:
			batch := []request{req}

			for len(batch) < s.batchSize && len(s.queue) > 0 {
				batch = append(batch, <-s.queue)
			}

			promQueue.Set(float64(len(s.queue)))

			s.processBatch(batch)
		}
	}
}

func (s *Service) drain() {
	for {
		select {
		case req := <-s.queue:
			req.reply <- reply{err: ErrClosed}
		default:
			return
		}
	}
}

func (s *Service) processBatch(batch []request) {
	txs := make([]txn.Transaction, len(batch))
	for i, req := range batch {
		txs[i] = req.tx
	}

	block, err := s.commit(txs)
	if err != nil {
		s.logger.Err(err).Int("txs", len(txs)).Msg("failed to commit block")

		for _, req := range batch {
			req.reply <- reply{err: xerrors.Errorf("failed to commit block: %v", err)}
		}

		return
	}

	promBlocks.Inc()

	for i, res := range block.GetResults() {
		accepted, message := res.GetStatus()

		if accepted {
			promTransactions.WithLabelValues("accepted").Inc()
		} else {
			promTransactions.WithLabelValues("refused").Inc()
		}

		batch[i].reply <- reply{
			receipt: Receipt{
				Index:    block.GetIndex(),
				Time:     block.GetTime(),
				Accepted: accepted,
				Message:  message,
				Err:      res.GetError(),
			},
		}
	}

	s.logger.Debug().
		Uint64("index", block.GetIndex()).
		Int("txs", len(txs)).
		Msg("block committed")

	s.watcher.Notify(Event{Block: block})
}

func (s *Service) commit(txs []txn.Transaction) (types.Block, error) {
	current := s.GetStatus()

	header := validation.Header{
		Index: current.Index + 1,
		Time:  s.clock.Now().Unix(),
	}

	var block types.Block

	err := s.db.Update(func(tx kv.WritableTx) error {
		state, err := tx.GetBucketOrCreate(stateBucket)
		if err != nil {
			return xerrors.Errorf("state bucket: %v", err)
		}

		res, err := s.validation.Validate(kv.NewSnapshot(state), header, txs)
		if err != nil {
			return xerrors.Errorf("validation failed: %v", err)
		}

		block, err = types.NewBlock(res.GetTransactionResults(),
			types.WithIndex(header.Index),
			types.WithTime(header.Time),
			types.WithPrevious(current.Hash))
		if err != nil {
			return xerrors.Errorf("failed to create block: %v", err)
		}

		data, err := block.Serialize(s.context)
		if err != nil {
			return xerrors.Errorf("failed to serialize block: %v", err)
		}

		blocks, err := tx.GetBucketOrCreate(blockBucket)
		if err != nil {
			return xerrors.Errorf("blocks bucket: %v", err)
		}

		err = blocks.Set(indexKey(header.Index), data)
		if err != nil {
			return xerrors.Errorf("failed to store block: %v", err)
		}

		status := Status{
			Index: block.GetIndex(),
			Time:  block.GetTime(),
			Hash:  block.GetHash(),
		}

		err = s.storeStatus(tx, status)
		if err != nil {
			return xerrors.Errorf("failed to store status: %v", err)
		}

		tx.OnCommit(func() {
			s.Lock()
			s.status = status
			s.Unlock()
		})

		return nil
	})
	if err != nil {
		return types.Block{}, err
	}

	return block, nil
}

func (s *Service) storeStatus(tx kv.WritableTx, status Status) error {
	meta, err := tx.GetBucketOrCreate(metaBucket)
	if err != nil {
		return xerrors.Errorf("meta bucket: %v", err)
	}

	data, err := s.context.Marshal(status)
	if err != nil {
		return xerrors.Errorf("failed to marshal: %v", err)
	}

	return meta.Set(statusKey, data)
}

func indexKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)

	return key
}

// observer forwards the block events to a channel until the context of the
// watcher is done.
//
// - implements core.Observer
type observer struct {
	ch  chan Event
	ctx context.Context
}

func (obs observer) NotifyCallback(event interface{}) {
	select {
	case obs.ch <- event.(Event):
	case <-obs.ctx.Done():
	}
}
