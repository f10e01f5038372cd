package exchange

import (
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

type OrderRequest struct {
	Side      orderbook.Side  `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	AccountID string          `json:"userId"`
}

type OrderResponse struct {
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
	// Trades is not part of the wire response; transports that report fills
	// individually (FIX) read it.
	Trades []TradeView `json:"-"`
}

type TradeView struct {
	ID    string
	Price decimal.Decimal
	Qty   decimal.Decimal
}

type QuoteRequest struct {
	Side     orderbook.Side  `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
}

type QuoteResponse struct {
	Quote decimal.Decimal `json:"quote"`
}
