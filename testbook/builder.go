// Package testbook seeds a synthetic order book for benchmarking runs.
package testbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bolt/domain/orderbook"
	"bolt/service"
)

// ParseSize parses a book size with an optional k (1e3) or M (1e6) suffix,
// case-insensitive, e.g. "500k" or "2M".
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := uint64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1_000
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1_000_000
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n * mult, nil
}

// Seed inserts n bids at prices 1..n and n asks at prices n+1..2n, one unit
// each, so the seeded book is never crossed. Order ids are 1..2n.
func Seed(engine *service.Engine, n uint64) error {
	now := uint64(time.Now().UnixNano())
	productID := engine.ProductID()

	for i := uint64(0); i < n; i++ {
		o := engine.AcquireOrder()
		o.ProductID = productID
		o.Side = orderbook.Buy
		o.PriceType = orderbook.Limit
		o.Price = i + 1
		o.Quantity = 1
		o.OrderID = i + 1
		o.SubmitTime = now
		if err := engine.SeedResting(o); err != nil {
			engine.ReleaseOrder(o)
			return err
		}
	}
	for i := uint64(0); i < n; i++ {
		o := engine.AcquireOrder()
		o.ProductID = productID
		o.Side = orderbook.Sell
		o.PriceType = orderbook.Limit
		o.Price = n + i + 1
		o.Quantity = 1
		o.OrderID = n + i + 1
		o.SubmitTime = now
		if err := engine.SeedResting(o); err != nil {
			engine.ReleaseOrder(o)
			return err
		}
	}
	return nil
}
