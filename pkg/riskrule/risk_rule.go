package riskrule

import (
	"errors"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositivePrice    = errors.New("price must be positive")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrMissingAccount      = errors.New("account id is required")
	ErrPriceLimit          = errors.New("price limit violation")
	ErrTickSize            = errors.New("invalid tick size")
)

// Order is what the boundary knows about an order before it reaches the engine.
type Order struct {
	Side      orderbook.Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	AccountID string
}

type RiskRule interface {
	Check(order *Order) error
}

// Check runs rules in order and stops at the first violation.
func Check(order *Order, rules ...RiskRule) error {
	for _, r := range rules {
		if err := r.Check(order); err != nil {
			return err
		}
	}
	return nil
}
