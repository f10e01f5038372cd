package riskrule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TickSizeRule requires prices to be a whole number of ticks.
type TickSizeRule struct {
	Step decimal.Decimal
}

func (r *TickSizeRule) Check(order *Order) error {
	if !r.Step.IsPositive() {
		return nil
	}
	if !order.Price.Mod(r.Step).IsZero() {
		return fmt.Errorf("%w: %s is not a multiple of %s", ErrTickSize, order.Price, r.Step)
	}
	return nil
}
