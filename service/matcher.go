package service

import (
	"context"
	"time"

	"bolt/domain/orderbook"
)

// RunMatcher is the single task with write access to the book. It blocks
// until the ready flag rises, then drains the inbound queue in arrival
// order, running each message to completion before the next.
func (e *Engine) RunMatcher(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-e.readyCh:
	}
	e.logger.Infow("matcher started", "product", e.productID)

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-e.inbound:
			e.dispatch(m)
		}
	}
}

func (e *Engine) dispatch(m Inbound) {
	if m.Order == nil {
		e.mu.Lock()
		e.book.CancelOrder(m.CancelID)
		e.mu.Unlock()
		return
	}

	start := time.Now()
	e.mu.Lock()
	results := e.book.MatchOrder(m.Order)
	e.mu.Unlock()
	e.counters.MatchNanos.Add(uint64(time.Since(start)))

	e.counters.Matched.Add(uint64(len(results)))
	for i := range results {
		e.publish(&results[i])
	}
}

// publish forwards one execution without ever blocking the matcher. A full
// outbound queue drops the record and counts it; redundant peer instances
// carry the reliability burden.
func (e *Engine) publish(r *orderbook.MatchResult) {
	select {
	case e.outbound <- Outbound{Result: r}:
	default:
		e.counters.OutboundDrops.Add(1)
	}

	if e.feed == nil {
		return
	}
	select {
	case e.feed <- *r:
	default:
		e.counters.FeedDrops.Add(1)
	}
}
