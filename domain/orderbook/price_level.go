package orderbook

import "fmt"

// PriceLevel holds all resting orders at one price on one side, ordered by
// (SubmitTime, OrderID) ascending. Oldest order is at the head and trades
// first.
type PriceLevel struct {
	Price    uint64
	head     *Order
	tail     *Order
	Count    int
	TotalQty uint64
}

func (lvl *PriceLevel) Head() *Order { return lvl.head }

func (o *Order) Next() *Order { return o.next }

// insert places o at its (SubmitTime, OrderID) position. A live incoming
// order is usually the newest the level has seen, so the walk from the tail
// terminates immediately; snapshot records and orders from a regressed
// submitter clock may arrive out of order and pay a short scan.
func (lvl *PriceLevel) insert(o *Order) {
	at := lvl.tail
	for at != nil && after(at, o) {
		at = at.prev
	}
	if at == nil {
		o.next = lvl.head
		if lvl.head != nil {
			lvl.head.prev = o
		} else {
			lvl.tail = o
		}
		lvl.head = o
	} else {
		o.prev = at
		o.next = at.next
		if at.next != nil {
			at.next.prev = o
		} else {
			lvl.tail = o
		}
		at.next = o
	}
	o.level = lvl
	lvl.Count++
	lvl.TotalQty += o.Quantity
}

// after reports whether a sorts after b in the level's time priority.
func after(a, b *Order) bool {
	if a.SubmitTime != b.SubmitTime {
		return a.SubmitTime > b.SubmitTime
	}
	return a.OrderID > b.OrderID
}

// unlink removes o from the level. The caller accounts for any quantity
// already traded away; TotalQty drops by o's remaining quantity.
func (lvl *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		lvl.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		lvl.tail = o.prev
	}
	o.next, o.prev = nil, nil
	o.level = nil
	lvl.Count--
	lvl.TotalQty -= o.Quantity
}

func (lvl *PriceLevel) empty() bool { return lvl.head == nil }

func (lvl *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%d, Orders=%d, TotalQty=%d}", lvl.Price, lvl.Count, lvl.TotalQty)
}
