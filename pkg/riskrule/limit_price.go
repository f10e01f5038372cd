package riskrule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LimitPriceRule bounds accepted prices. A zero bound is open.
type LimitPriceRule struct {
	Floor decimal.Decimal
	Ceil  decimal.Decimal
}

func (r *LimitPriceRule) Check(order *Order) error {
	if !r.Ceil.IsZero() && order.Price.GreaterThan(r.Ceil) {
		return fmt.Errorf("%w: %s above %s", ErrPriceLimit, order.Price, r.Ceil)
	}
	if !r.Floor.IsZero() && order.Price.LessThan(r.Floor) {
		return fmt.Errorf("%w: %s below %s", ErrPriceLimit, order.Price, r.Floor)
	}
	return nil
}
