package tradebus

import (
	"time"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/shopspring/decimal"
)

// TradeEvent is the wire form of one fill on the trade topic.
type TradeEvent struct {
	TradeID        string          `json:"trade_id"`
	Seq            uint64          `json:"seq"`
	Ticker         string          `json:"ticker"`
	MakerAccountID string          `json:"maker_account_id"`
	TakerAccountID string          `json:"taker_account_id"`
	TakerSide      string          `json:"taker_side"`
	Price          decimal.Decimal `json:"price"`
	Quantity       decimal.Decimal `json:"quantity"`
	ExecutedAt     time.Time       `json:"executed_at"`
}

func NewTradeEvent(ticker string, t engine.Trade) TradeEvent {
	return TradeEvent{
		TradeID:        t.ID,
		Seq:            t.Seq,
		Ticker:         ticker,
		MakerAccountID: t.MakerAccountID,
		TakerAccountID: t.TakerAccountID,
		TakerSide:      string(t.TakerSide),
		Price:          t.Price,
		Quantity:       t.Qty,
		ExecutedAt:     t.ExecutedAt,
	}
}
