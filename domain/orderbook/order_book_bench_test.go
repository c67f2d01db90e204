package orderbook

import (
	"testing"

	"go.uber.org/zap"

	"bolt/infra/memory"
	"bolt/infra/sequence"
)

func newBenchBook() *Book {
	pool := memory.NewPool(func() *Order { return &Order{} })
	return NewBook(testProduct, pool, sequence.New(0), zap.NewNop().Sugar())
}

func BenchmarkInsertResting(b *testing.B) {
	book := newBenchBook()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = book.InsertResting(&Order{
			ProductID:  testProduct,
			Side:       Buy,
			PriceType:  Limit,
			Price:      uint64(i%1024 + 1),
			Quantity:   1,
			OrderID:    uint64(i + 1),
			SubmitTime: uint64(i),
		})
	}
}

func BenchmarkMatchOrderCrossing(b *testing.B) {
	book := newBenchBook()
	for i := 0; i < b.N; i++ {
		_ = book.InsertResting(&Order{
			ProductID:  testProduct,
			Side:       Sell,
			PriceType:  Limit,
			Price:      100,
			Quantity:   1,
			OrderID:    uint64(i + 1),
			SubmitTime: uint64(i),
		})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		book.MatchOrder(&Order{
			ProductID:  testProduct,
			Side:       Buy,
			PriceType:  Limit,
			Price:      100,
			Quantity:   1,
			OrderID:    uint64(b.N + i + 1),
			SubmitTime: uint64(b.N + i),
		})
	}
}

func BenchmarkMatchOrderResting(b *testing.B) {
	book := newBenchBook()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// alternate non-crossing sides so nothing ever trades
		o := &Order{
			ProductID:  testProduct,
			Side:       Buy,
			PriceType:  Limit,
			Price:      uint64(i%64 + 1),
			Quantity:   1,
			OrderID:    uint64(i + 1),
			SubmitTime: uint64(i),
		}
		if i%2 == 1 {
			o.Side = Sell
			o.Price = uint64(i%64 + 1000)
		}
		book.MatchOrder(o)
	}
}

func BenchmarkCancelOrder(b *testing.B) {
	book := newBenchBook()
	for i := 0; i < b.N; i++ {
		_ = book.InsertResting(&Order{
			ProductID:  testProduct,
			Side:       Buy,
			PriceType:  Limit,
			Price:      uint64(i%1024 + 1),
			Quantity:   1,
			OrderID:    uint64(i + 1),
			SubmitTime: uint64(i),
		})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		book.CancelOrder(uint64(i + 1))
	}
}
