package exchange

import (
	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/quote"
)

// Errors surfaced to transports. They alias the core packages' sentinels so
// errors.Is works on either name.
var (
	ErrInvalidInput          = engine.ErrInvalidInput
	ErrUnknownAccount        = ledger.ErrUnknownAccount
	ErrInsufficientLiquidity = quote.ErrInsufficientLiquidity
)
