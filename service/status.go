package service

import (
	"context"
	"time"
)

// RunStatus samples the counters at a fixed cadence and enqueues a status
// record for the egress broadcaster. Like match results, status records are
// dropped rather than blocking when the outbound queue is full. The log line
// additionally carries the feed-tap drops and the average match latency per
// result since the previous sample.
func (e *Engine) RunStatus(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var lastNanos, lastMatched uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := e.SampleStatus()
			select {
			case e.outbound <- Outbound{Status: &st}:
			default:
				e.counters.OutboundDrops.Add(1)
			}

			nanos := e.counters.MatchNanos.Load()
			var avgMatchNs uint64
			if st.Matched > lastMatched {
				avgMatchNs = (nanos - lastNanos) / (st.Matched - lastMatched)
			}
			e.logger.Debugw("status sample",
				"received", st.Received,
				"matched", st.Matched,
				"bids", st.BidOrders,
				"asks", st.AskOrders,
				"inbound_drops", st.InboundDrops,
				"outbound_drops", st.OutboundDrops,
				"feed_drops", e.counters.FeedDrops.Load(),
				"avg_match_ns", avgMatchNs,
			)
			lastNanos, lastMatched = nanos, st.Matched
		}
	}
}
