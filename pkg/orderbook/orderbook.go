// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"container/heap"
	"fmt"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

type bookSide struct {
	side   Side
	levels map[string]*deque.Deque[*Order]
	prices *PriceHeap
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: make(map[string]*deque.Deque[*Order]),
		prices: NewPriceHeap(func(i, j decimal.Decimal) bool { return betterPrice(side, i, j) }),
	}
}

// bestQueue returns the FIFO queue of the best price level, dropping any
// level that has been drained.
func (bs *bookSide) bestQueue() (*deque.Deque[*Order], bool) {
	for {
		bestPrice, ok := bs.prices.Peek()
		if !ok {
			return nil, false
		}

		key := priceKey(bestPrice)
		q := bs.levels[key]
		if q == nil || q.Len() == 0 {
			heap.Pop(bs.prices)
			delete(bs.levels, key)
			continue
		}
		return q, true
	}
}

func (bs *bookSide) push(order *Order) {
	key := priceKey(order.Price)
	if bs.levels[key] == nil {
		bs.levels[key] = &deque.Deque[*Order]{}
		heap.Push(bs.prices, order.Price)
	}
	bs.levels[key].PushBack(order)
}

// OrderBook holds the resting bids and asks of a single instrument.
//
// Bids are kept on a max-heap of price levels, asks on a min-heap; each level
// is a FIFO queue. Every insert takes the next sequence number so equal-price
// orders are served strictly in arrival order. OrderBook is not safe for
// concurrent use; the matching engine serialises access to it.
type OrderBook struct {
	bids *bookSide
	asks *bookSide
	seq  uint64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: newBookSide(Bid),
		asks: newBookSide(Ask),
	}
}

func (ob *OrderBook) sideOf(side Side) (*bookSide, error) {
	switch side {
	case Bid:
		return ob.bids, nil
	case Ask:
		return ob.asks, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSide, side)
}

func (ob *OrderBook) InsertBid(order Order) (Order, error) {
	return ob.Insert(Bid, order)
}

func (ob *OrderBook) InsertAsk(order Order) (Order, error) {
	return ob.Insert(Ask, order)
}

// Insert rests order on side and returns it with its assigned sequence number.
func (ob *OrderBook) Insert(side Side, order Order) (Order, error) {
	bs, err := ob.sideOf(side)
	if err != nil {
		return Order{}, err
	}
	if !order.Price.IsPositive() {
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidPrice, order.Price)
	}
	if !order.Qty.IsPositive() {
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, order.Qty)
	}

	ob.seq++
	order.Seq = ob.seq
	resting := order
	bs.push(&resting)
	return order, nil
}

func (ob *OrderBook) BestBid() (Order, bool) {
	return ob.Best(Bid)
}

func (ob *OrderBook) BestAsk() (Order, bool) {
	return ob.Best(Ask)
}

func (ob *OrderBook) Best(side Side) (Order, bool) {
	bs, err := ob.sideOf(side)
	if err != nil {
		return Order{}, false
	}
	q, ok := bs.bestQueue()
	if !ok {
		return Order{}, false
	}
	return *q.Front(), true
}

// PopOrReduce consumes qty from the best order on side. The order is removed
// once it reaches zero. The returned order carries the maker's account and
// price, with Qty set to what is left resting (zero when removed).
func (ob *OrderBook) PopOrReduce(side Side, qty decimal.Decimal) (Order, error) {
	bs, err := ob.sideOf(side)
	if err != nil {
		return Order{}, err
	}
	if !qty.IsPositive() {
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, qty)
	}

	q, ok := bs.bestQueue()
	if !ok {
		return Order{}, ErrEmptySide
	}

	best := q.Front()
	if qty.GreaterThan(best.Qty) {
		return Order{}, fmt.Errorf("%w: want %s, resting %s", ErrOverfill, qty, best.Qty)
	}

	best.Qty = best.Qty.Sub(qty)
	out := *best
	if best.Qty.IsZero() {
		q.PopFront()
		if q.Len() == 0 {
			heap.Pop(bs.prices)
			delete(bs.levels, priceKey(best.Price))
		}
	}
	return out, nil
}

// Orders returns a copy of the resting orders of side in priority order.
func (ob *OrderBook) Orders(side Side) []Order {
	bs, err := ob.sideOf(side)
	if err != nil {
		return nil
	}

	var out []Order
	for _, price := range bs.prices.Sorted() {
		q := bs.levels[priceKey(price)]
		if q == nil {
			continue
		}
		for i := 0; i < q.Len(); i++ {
			out = append(out, *q.At(i))
		}
	}
	return out
}

// Len is the number of resting orders on side.
func (ob *OrderBook) Len(side Side) int {
	bs, err := ob.sideOf(side)
	if err != nil {
		return 0
	}
	n := 0
	for _, q := range bs.levels {
		n += q.Len()
	}
	return n
}

// Depth aggregates resting quantity per (price, side).
func (ob *OrderBook) Depth() Depth {
	depth := make(Depth)
	for _, bs := range []*bookSide{ob.bids, ob.asks} {
		for _, q := range bs.levels {
			for i := 0; i < q.Len(); i++ {
				depth.add(bs.side, q.At(i))
			}
		}
	}
	return depth
}
