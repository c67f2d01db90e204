package orderbook

import (
	"fmt"

	"go.uber.org/zap"

	"bolt/infra/memory"
	"bolt/infra/sequence"
)

// Book is the order book for a single product: a bid ladder, an ask ladder
// and an order-id index. It is not safe for concurrent use; the matcher owns
// it under a single-writer lock.
type Book struct {
	productID uint16
	bids      *RBTree
	asks      *RBTree
	index     map[uint64]*Order
	pool      *memory.Pool[Order]
	seq       *sequence.Sequencer
	logger    *zap.SugaredLogger

	// lastExecTime coerces execution timestamps monotonic when the
	// submitters' clocks regress.
	lastExecTime uint64

	restingBids int
	restingAsks int

	rejected    uint64
	noLiquidity uint64
	expired     uint64
}

// Stats are the book's silent-drop counters, sampled by the status emitter.
type Stats struct {
	Rejected    uint64
	NoLiquidity uint64
	Expired     uint64
}

func NewBook(productID uint16, pool *memory.Pool[Order], seq *sequence.Sequencer, logger *zap.SugaredLogger) *Book {
	return &Book{
		productID: productID,
		bids:      NewRBTree(),
		asks:      NewRBTree(),
		index:     make(map[uint64]*Order, 1024),
		pool:      pool,
		seq:       seq,
		logger:    logger,
	}
}

// ---------------- Matching ---------------- //

// MatchOrder applies an incoming order against the contra ladder under
// price/time priority and returns the executions in order. Unfilled LIMIT
// residual rests in the book; MARKET residual is discarded. The book takes
// ownership of o.
func (b *Book) MatchOrder(o *Order) []MatchResult {
	if !b.accept(o) {
		b.recycle(o)
		return nil
	}

	execTime := o.SubmitTime
	if execTime < b.lastExecTime {
		execTime = b.lastExecTime
	}

	var results []MatchResult
	for o.Quantity > 0 {
		lvl := b.bestContra(o.Side)
		if lvl == nil || !crosses(o, lvl) {
			break
		}
		results = b.consumeLevel(o, lvl, execTime, results)
		if lvl.empty() {
			b.dropLevel(o.Side.Opposite(), lvl)
		}
	}

	if len(results) > 0 {
		b.lastExecTime = execTime
	}

	switch {
	case o.Quantity == 0:
		b.recycle(o)
	case o.PriceType == Market:
		if len(results) == 0 {
			b.noLiquidity++
			b.logger.Debugw("market order found no contra liquidity",
				"order", o.OrderID, "side", o.Side.String(), "qty", o.Quantity)
		}
		b.recycle(o)
	default:
		b.insertResting(o)
	}
	return results
}

// accept runs the structural checks. Failures are counted and logged at
// debug; no result is emitted for them.
func (b *Book) accept(o *Order) bool {
	switch {
	case o.ProductID != b.productID:
		b.logger.Debugw("dropping order for foreign product",
			"product", o.ProductID, "order", o.OrderID)
	case !o.Side.Valid() || !o.PriceType.Valid():
		b.logger.Debugw("dropping order with invalid enum",
			"order", o.OrderID, "side", uint8(o.Side), "price_type", uint8(o.PriceType))
	case o.Quantity == 0:
		b.logger.Debugw("dropping zero-quantity order", "order", o.OrderID)
	case o.ExpireTime != 0 && o.ExpireTime <= o.SubmitTime:
		b.logger.Debugw("dropping already-expired order",
			"order", o.OrderID, "expire", o.ExpireTime, "submit", o.SubmitTime)
	case b.index[o.OrderID] != nil:
		b.logger.Debugw("dropping order with duplicate id", "order", o.OrderID)
	default:
		return true
	}
	b.rejected++
	return false
}

// consumeLevel trades o against the level's queue head to tail, sweeping
// expired makers as it goes.
func (b *Book) consumeLevel(o *Order, lvl *PriceLevel, execTime uint64, results []MatchResult) []MatchResult {
	for r := lvl.head; r != nil && o.Quantity > 0; {
		next := r.next
		if r.expiredAt(o.SubmitTime) {
			b.removeResting(r)
			b.expired++
			r = next
			continue
		}

		traded := min(o.Quantity, r.Quantity)
		o.Quantity -= traded
		r.Quantity -= traded
		lvl.TotalQty -= traded

		results = append(results, MatchResult{
			ProductID: b.productID,
			TakerSide: o.Side,
			TakerID:   o.OrderID,
			MakerID:   r.OrderID,
			Price:     lvl.Price,
			Quantity:  traded,
			ExecTime:  execTime,
			Seq:       b.seq.Next(),
		})

		if r.Quantity == 0 {
			b.removeResting(r)
		}
		r = next
	}
	return results
}

func (b *Book) bestContra(side Side) *PriceLevel {
	if side == Buy {
		return b.asks.MinLevel()
	}
	return b.bids.MaxLevel()
}

func crosses(o *Order, lvl *PriceLevel) bool {
	if o.PriceType == Market {
		return true
	}
	if o.Side == Buy {
		return o.Price >= lvl.Price
	}
	return o.Price <= lvl.Price
}

// ---------------- Resting orders ---------------- //

// InsertResting places an order directly into its own ladder, bypassing the
// matching path. It is the snapshot and test-book entry point.
func (b *Book) InsertResting(o *Order) error {
	switch {
	case o.ProductID != b.productID:
		return fmt.Errorf("resting order %d: product %d does not match engine product %d",
			o.OrderID, o.ProductID, b.productID)
	case !o.Side.Valid():
		return fmt.Errorf("resting order %d: invalid side %d", o.OrderID, o.Side)
	case o.PriceType != Limit:
		return fmt.Errorf("resting order %d: only limit orders can rest", o.OrderID)
	case o.Quantity == 0:
		return fmt.Errorf("resting order %d: zero quantity", o.OrderID)
	case b.index[o.OrderID] != nil:
		return fmt.Errorf("resting order %d: duplicate id", o.OrderID)
	}
	b.insertResting(o)
	return nil
}

func (b *Book) insertResting(o *Order) {
	var lvl *PriceLevel
	if o.Side == Buy {
		lvl = b.bids.UpsertLevel(o.Price)
		b.restingBids++
	} else {
		lvl = b.asks.UpsertLevel(o.Price)
		b.restingAsks++
	}
	lvl.insert(o)
	b.index[o.OrderID] = o
}

// CancelOrder removes the identified resting order. Silent on miss.
func (b *Book) CancelOrder(orderID uint64) bool {
	o := b.index[orderID]
	if o == nil {
		return false
	}
	lvl := o.level
	if lvl == nil {
		panic(fmt.Sprintf("orderbook: indexed order %d has no level", orderID))
	}
	side := o.Side
	b.removeResting(o)
	if lvl.empty() {
		b.dropLevel(side, lvl)
	}
	return true
}

// removeResting unlinks a resting order from its level and the index and
// recycles it. The caller removes the level if it became empty.
func (b *Book) removeResting(o *Order) {
	if b.index[o.OrderID] != o {
		panic(fmt.Sprintf("orderbook: resting order %d missing from index", o.OrderID))
	}
	delete(b.index, o.OrderID)
	o.level.unlink(o)
	if o.Side == Buy {
		b.restingBids--
	} else {
		b.restingAsks--
	}
	b.recycle(o)
}

func (b *Book) dropLevel(side Side, lvl *PriceLevel) {
	ladder := b.asks
	if side == Buy {
		ladder = b.bids
	}
	if !ladder.DeleteLevel(lvl.Price) {
		panic(fmt.Sprintf("orderbook: level %d missing from %s ladder", lvl.Price, side))
	}
}

func (b *Book) recycle(o *Order) {
	o.Reset()
	b.pool.Put(o)
}

// ---------------- Views ---------------- //

func (b *Book) BestBid() (uint64, bool) {
	lvl := b.bids.MaxLevel()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

func (b *Book) BestAsk() (uint64, bool) {
	lvl := b.asks.MinLevel()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// RestingOrders returns the count of resting orders per side.
func (b *Book) RestingOrders() (bids, asks int) {
	return b.restingBids, b.restingAsks
}

// Levels returns the count of occupied price levels per side.
func (b *Book) Levels() (bids, asks int) {
	return b.bids.Size(), b.asks.Size()
}

func (b *Book) Stats() Stats {
	return Stats{Rejected: b.rejected, NoLiquidity: b.noLiquidity, Expired: b.expired}
}
