package riskrule

import (
	"fmt"

	"github.com/joripage/matching-engine/pkg/orderbook"
)

// WellFormedRule rejects orders the engine must never see: unknown side,
// non-positive price or quantity, missing account.
type WellFormedRule struct{}

func (WellFormedRule) Check(order *Order) error {
	if !order.Side.Valid() {
		return fmt.Errorf("%w: %q", orderbook.ErrInvalidSide, order.Side)
	}
	if !order.Price.IsPositive() {
		return ErrNonPositivePrice
	}
	if !order.Quantity.IsPositive() {
		return ErrNonPositiveQuantity
	}
	if order.AccountID == "" {
		return ErrMissingAccount
	}
	return nil
}
