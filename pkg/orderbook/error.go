package orderbook

import "errors"

var (
	ErrInvalidSide     = errors.New("invalid side")
	ErrEmptySide       = errors.New("no resting order on side")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidPrice    = errors.New("invalid order price")
	ErrOverfill        = errors.New("quantity exceeds resting order")
)
