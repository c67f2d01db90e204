// Package memory provides allocation helpers for the engine's hot path.
package memory

import "sync"

// Pool is a typed object pool. Decoded orders are drawn from it on ingress
// and returned by the book once consumed, so steady-state matching does not
// churn the garbage collector.
type Pool[T any] struct {
	p sync.Pool
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	pl := &Pool[T]{}
	pl.p.New = func() any { return ctor() }
	return pl
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	p.p.Put(v)
}
