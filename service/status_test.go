package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunStatusLogsLatencyAndFeedDrops(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := NewEngine(Config{
		ProductID: 7,
		Tag:       "t1",
		Logger:    zap.New(core).Sugar(),
	})
	e.counters.Matched.Store(4)
	e.counters.MatchNanos.Store(4000)
	e.counters.FeedDrops.Store(2)
	e.MarkReady()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.RunStatus(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("status sample").Len() > 0
	}, 2*time.Second, 5*time.Millisecond, "status emitter never logged a sample")

	fields := logs.FilterMessage("status sample").All()[0].ContextMap()
	assert.EqualValues(t, 1000, fields["avg_match_ns"], "4000 ns over 4 results")
	assert.EqualValues(t, 2, fields["feed_drops"])
}

func TestRunStatusLatencyIsPerSampleWindow(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := NewEngine(Config{
		ProductID: 7,
		Tag:       "t1",
		Logger:    zap.New(core).Sugar(),
	})
	e.counters.Matched.Store(10)
	e.counters.MatchNanos.Store(10_000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.RunStatus(ctx, 10*time.Millisecond)

	// No matches between the first and second tick: the windowed average
	// must drop to zero instead of re-reporting the lifetime average.
	require.Eventually(t, func() bool {
		return logs.FilterMessage("status sample").Len() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	entries := logs.FilterMessage("status sample").All()
	assert.EqualValues(t, 1000, entries[0].ContextMap()["avg_match_ns"])
	assert.EqualValues(t, 0, entries[1].ContextMap()["avg_match_ns"])
}
