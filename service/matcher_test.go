package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bolt/domain/orderbook"
)

func newTestEngine(inDepth, outDepth int) *Engine {
	return NewEngine(Config{
		ProductID:     7,
		Tag:           "t1",
		InboundDepth:  inDepth,
		OutboundDepth: outDepth,
		Logger:        zap.NewNop().Sugar(),
	})
}

func submit(e *Engine, side orderbook.Side, priceType orderbook.PriceType, price, qty, id, submitTime uint64) bool {
	o := e.AcquireOrder()
	o.ProductID = e.ProductID()
	o.Side = side
	o.PriceType = priceType
	o.Price = price
	o.Quantity = qty
	o.OrderID = id
	o.SubmitTime = submitTime
	return e.TryEnqueue(Inbound{Order: o})
}

func recvResult(t *testing.T, e *Engine) *orderbook.MatchResult {
	t.Helper()
	select {
	case m := <-e.Outbound():
		require.NotNil(t, m.Result)
		return m.Result
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for match result")
		return nil
	}
}

func TestMatcherWaitsForReady(t *testing.T) {
	e := newTestEngine(16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.RunMatcher(ctx)

	require.True(t, submit(e, orderbook.Buy, orderbook.Limit, 100, 5, 1, 10))
	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 100, 5, 2, 11))

	select {
	case <-e.Outbound():
		t.Fatal("matcher produced a result before the ready flag rose")
	case <-time.After(50 * time.Millisecond):
	}

	e.MarkReady()
	r := recvResult(t, e)
	assert.Equal(t, uint64(2), r.TakerID)
	assert.Equal(t, uint64(1), r.MakerID)
}

func TestMatcherEmitsResultsInExecutionOrder(t *testing.T) {
	e := newTestEngine(16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.MarkReady()
	go e.RunMatcher(ctx)

	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 100, 1, 1, 10))
	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 101, 1, 2, 11))
	require.True(t, submit(e, orderbook.Buy, orderbook.Limit, 101, 2, 3, 12))

	first := recvResult(t, e)
	second := recvResult(t, e)
	assert.Equal(t, uint64(100), first.Price)
	assert.Equal(t, uint64(101), second.Price)
	assert.Equal(t, first.Seq+1, second.Seq, "results of one submission are contiguous")
	assert.Equal(t, uint64(2), e.Counters().Matched.Load())
}

func TestMatcherCancelPath(t *testing.T) {
	e := newTestEngine(16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.MarkReady()
	go e.RunMatcher(ctx)

	require.True(t, submit(e, orderbook.Buy, orderbook.Limit, 100, 5, 1, 10))
	require.True(t, e.TryEnqueue(Inbound{CancelID: 1}))

	assert.Eventually(t, func() bool {
		st := e.SampleStatus()
		return st.BidOrders == 0
	}, 2*time.Second, 5*time.Millisecond, "cancelled order should leave the book")

	// A sell arriving after the cancel finds no liquidity to cross.
	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 100, 5, 2, 11))
	assert.Eventually(t, func() bool {
		return e.SampleStatus().AskOrders == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMatcherDropsResultsWhenOutboundFull(t *testing.T) {
	e := newTestEngine(16, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.MarkReady()
	go e.RunMatcher(ctx)

	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 100, 1, 1, 10))
	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 100, 1, 2, 11))
	// Crosses both makers: two results, but the outbound queue holds one.
	require.True(t, submit(e, orderbook.Buy, orderbook.Market, 0, 2, 3, 12))

	assert.Eventually(t, func() bool {
		return e.Counters().OutboundDrops.Load() == 1
	}, 2*time.Second, 5*time.Millisecond, "second result must be dropped, not block the matcher")
	assert.Equal(t, uint64(2), e.Counters().Matched.Load(), "matching itself is unaffected by egress backpressure")
}

func TestInboundQueueRefusesWhenFull(t *testing.T) {
	e := newTestEngine(1, 16)
	// Matcher not running: the queue holds exactly one message.
	require.True(t, submit(e, orderbook.Buy, orderbook.Limit, 100, 1, 1, 10))
	assert.False(t, submit(e, orderbook.Buy, orderbook.Limit, 100, 1, 2, 11))
}

func TestFeedTapReceivesCopies(t *testing.T) {
	e := newTestEngine(16, 16)
	feed := e.EnableFeed(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.MarkReady()
	go e.RunMatcher(ctx)

	require.True(t, submit(e, orderbook.Sell, orderbook.Limit, 100, 2, 1, 10))
	require.True(t, submit(e, orderbook.Buy, orderbook.Limit, 100, 2, 2, 11))

	select {
	case r := <-feed:
		assert.Equal(t, uint64(2), r.TakerID)
		assert.Equal(t, uint64(2), r.Quantity)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed tap")
	}
	recvResult(t, e) // the outbound copy is still delivered
}

func TestSampleStatus(t *testing.T) {
	e := newTestEngine(16, 16)
	require.NoError(t, e.SeedResting(seedOrder(e, orderbook.Buy, 100, 1)))
	require.NoError(t, e.SeedResting(seedOrder(e, orderbook.Sell, 101, 2)))
	e.Counters().Received.Add(5)
	e.MarkReady()

	st := e.SampleStatus()
	assert.Equal(t, uint16(7), st.ProductID)
	assert.True(t, st.Ready)
	assert.Equal(t, uint64(5), st.Received)
	assert.Equal(t, uint32(1), st.BidOrders)
	assert.Equal(t, uint32(1), st.AskOrders)
	assert.Equal(t, "t1", st.Tag.String())
	assert.NotZero(t, st.StartTime)
}

func TestRunStatusEnqueuesRecords(t *testing.T) {
	e := newTestEngine(16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.MarkReady()
	go e.RunStatus(ctx, 10*time.Millisecond)

	select {
	case m := <-e.Outbound():
		require.NotNil(t, m.Status)
		assert.True(t, m.Status.Ready)
		assert.Equal(t, uint16(7), m.Status.ProductID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status record")
	}
}

func seedOrder(e *Engine, side orderbook.Side, price, id uint64) *orderbook.Order {
	o := e.AcquireOrder()
	o.ProductID = e.ProductID()
	o.Side = side
	o.PriceType = orderbook.Limit
	o.Price = price
	o.Quantity = 1
	o.OrderID = id
	o.SubmitTime = id
	return o
}
