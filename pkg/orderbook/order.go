package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// ParseSide accepts the wire names "bid" and "ask".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Bid, Ask:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

func (s Side) Valid() bool {
	return s == Bid || s == Ask
}

func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (s Side) String() string {
	return string(s)
}

// Order is a resting limit order. The side is implied by the collection that
// holds it; Seq is assigned by the book on insert and breaks price ties.
type Order struct {
	AccountID string
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Seq       uint64
}

// before reports whether o has priority over other on the given side.
func (o Order) before(other Order, side Side) bool {
	if !o.Price.Equal(other.Price) {
		return betterPrice(side, o.Price, other.Price)
	}
	return o.Seq < other.Seq
}

func betterPrice(side Side, a, b decimal.Decimal) bool {
	if side == Bid {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func priceKey(p decimal.Decimal) string {
	return p.String()
}
