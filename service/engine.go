// Package service wires the order book to its queues: the single-writer
// matcher, the periodic status emitter, and the counters every other task
// samples.
package service

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"bolt/domain/orderbook"
	"bolt/infra/memory"
	"bolt/infra/sequence"
	"bolt/wire"
)

// Counters are the engine's shared drop and throughput statistics. All tasks
// mutate them lock-free; the status emitter samples them.
type Counters struct {
	Received      atomic.Uint64
	Matched       atomic.Uint64
	InboundDrops  atomic.Uint64
	OutboundDrops atomic.Uint64
	FeedDrops     atomic.Uint64
	Malformed     atomic.Uint64
	MatchNanos    atomic.Uint64
}

// Inbound is one typed message off the ingress queue. Order is nil for
// cancellations.
type Inbound struct {
	Order    *orderbook.Order
	CancelID uint64
}

// Outbound is one record for the egress broadcaster: exactly one of Result
// or Status is set.
type Outbound struct {
	Result *orderbook.MatchResult
	Status *wire.Status
}

type Config struct {
	ProductID     uint16
	Tag           string
	InboundDepth  int
	OutboundDepth int
	Logger        *zap.SugaredLogger
}

// Engine is the singleton aggregate: the book behind its single-writer lock,
// the bounded queues, the sequencer, and the ready flag raised once the
// snapshot load completes.
type Engine struct {
	productID uint16
	tag       wire.Tag

	mu   sync.RWMutex
	book *orderbook.Book

	pool *memory.Pool[orderbook.Order]
	seq  *sequence.Sequencer

	counters Counters
	inbound  chan Inbound
	outbound chan Outbound
	feed     chan orderbook.MatchResult

	ready     atomic.Bool
	readyCh   chan struct{}
	startTime uint64
	logger    *zap.SugaredLogger
}

func NewEngine(cfg Config) *Engine {
	if cfg.InboundDepth == 0 {
		cfg.InboundDepth = 1 << 14
	}
	if cfg.OutboundDepth == 0 {
		cfg.OutboundDepth = 1 << 14
	}
	pool := memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} })
	seq := sequence.New(0)
	return &Engine{
		productID: cfg.ProductID,
		tag:       wire.MakeTag(cfg.Tag),
		book:      orderbook.NewBook(cfg.ProductID, pool, seq, cfg.Logger),
		pool:      pool,
		seq:       seq,
		inbound:   make(chan Inbound, cfg.InboundDepth),
		outbound:  make(chan Outbound, cfg.OutboundDepth),
		readyCh:   make(chan struct{}),
		startTime: uint64(time.Now().UnixNano()),
		logger:    cfg.Logger,
	}
}

func (e *Engine) ProductID() uint16 { return e.productID }

func (e *Engine) Counters() *Counters { return &e.counters }

func (e *Engine) Outbound() <-chan Outbound { return e.outbound }

// AcquireOrder hands the ingress decoder a pooled order. Ownership passes to
// the book on enqueue, or back via ReleaseOrder on drop.
func (e *Engine) AcquireOrder() *orderbook.Order {
	return e.pool.Get()
}

func (e *Engine) ReleaseOrder(o *orderbook.Order) {
	o.Reset()
	e.pool.Put(o)
}

// TryEnqueue offers a message to the inbound queue without blocking. A full
// queue refuses the message; the caller drops it and counts.
func (e *Engine) TryEnqueue(m Inbound) bool {
	select {
	case e.inbound <- m:
		return true
	default:
		return false
	}
}

// EnableFeed creates the optional trade-feed tap. Must be called before the
// matcher starts.
func (e *Engine) EnableFeed(depth int) <-chan orderbook.MatchResult {
	e.feed = make(chan orderbook.MatchResult, depth)
	return e.feed
}

// SeedResting inserts a resting order outside the matching path. Used by the
// snapshot loader and the synthetic test book before the ready flag rises.
func (e *Engine) SeedResting(o *orderbook.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.InsertResting(o)
}

// MarkReady raises the ready flag and unblocks the matcher. Startup calls
// it exactly once, after the snapshot load completes.
func (e *Engine) MarkReady() {
	e.ready.Store(true)
	close(e.readyCh)
	e.logger.Infow("engine ready", "product", e.productID)
}

func (e *Engine) Ready() bool { return e.ready.Load() }

// SampleStatus assembles a status record from the counters and the book
// depth. The read lock is held only for the depth sample.
func (e *Engine) SampleStatus() wire.Status {
	e.mu.RLock()
	bids, asks := e.book.RestingOrders()
	e.mu.RUnlock()

	return wire.Status{
		ProductID:     e.productID,
		Ready:         e.ready.Load(),
		Received:      e.counters.Received.Load(),
		Matched:       e.counters.Matched.Load(),
		BidOrders:     uint32(bids),
		AskOrders:     uint32(asks),
		StartTime:     e.startTime,
		InboundDrops:  uint32(e.counters.InboundDrops.Load()),
		OutboundDrops: uint32(e.counters.OutboundDrops.Load()),
		Tag:           e.tag,
	}
}

// BookStats samples the book's silent-drop counters under the read lock.
func (e *Engine) BookStats() orderbook.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Stats()
}
