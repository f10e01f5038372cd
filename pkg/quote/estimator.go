package quote

import (
	"errors"
	"fmt"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientLiquidity = errors.New("not enough liquidity")
	ErrInvalidQuantity       = errors.New("invalid quote quantity")
)

// BookReader hands out priority-ordered copies of one side of the book.
type BookReader interface {
	Orders(side orderbook.Side) []orderbook.Order
}

// Estimator prices a hypothetical order without touching the book.
type Estimator struct {
	book BookReader
}

func NewEstimator(book BookReader) *Estimator {
	return &Estimator{book: book}
}

// Estimate returns what it would cost to fill qty on side right now: a bid is
// priced against the asks, an ask against the bids.
func (e *Estimator) Estimate(side orderbook.Side, qty decimal.Decimal) (decimal.Decimal, error) {
	if !side.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", orderbook.ErrInvalidSide, side)
	}
	return EstimateCost(e.book.Orders(side.Opposite()), qty)
}

// EstimateCost walks orders best first and sums min(resting, remaining)*price.
// It fails rather than pricing a partial fill.
func EstimateCost(orders []orderbook.Order, qty decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidQuantity, qty)
	}

	total := decimal.Zero
	remaining := qty
	for _, o := range orders {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(o.Qty, remaining)
		total = total.Add(take.Mul(o.Price))
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s short of %s", ErrInsufficientLiquidity, remaining, qty)
	}
	return total, nil
}
