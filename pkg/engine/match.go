package engine

import (
	"time"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// Trade is one matching step. The core never stores it; its lasting effect
// is the balance transfer between maker and taker.
type Trade struct {
	ID             string
	Seq            uint64
	MakerAccountID string
	TakerAccountID string
	TakerSide      orderbook.Side
	Price          decimal.Decimal
	Qty            decimal.Decimal
	ExecutedAt     time.Time
}

// SellerID and BuyerID resolve the counterparties from the taker's side.
func (t Trade) SellerID() string {
	if t.TakerSide == orderbook.Ask {
		return t.TakerAccountID
	}
	return t.MakerAccountID
}

func (t Trade) BuyerID() string {
	if t.TakerSide == orderbook.Bid {
		return t.TakerAccountID
	}
	return t.MakerAccountID
}

type SubmitResult struct {
	Filled    decimal.Decimal
	Remaining decimal.Decimal
	Trades    []Trade
	// Resting is the order placed on the book for the remainder, if any.
	Resting *orderbook.Order
}
