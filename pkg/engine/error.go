package engine

import "errors"

var (
	ErrInvalidInput = errors.New("invalid order input")
)
