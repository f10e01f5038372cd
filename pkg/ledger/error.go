package ledger

import "errors"

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrInvalidAmount  = errors.New("invalid transfer amount")
)
