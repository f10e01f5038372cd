package api

import (
	"time"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Side     orderbook.Side  `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

type DepthSnapshot struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

type DepthResponse struct {
	Depth DepthSnapshot `json:"depth"`
}

type BalanceResponse struct {
	Balances map[string]decimal.Decimal `json:"balances"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type TradeMessage struct {
	ID         string          `json:"id"`
	Seq        uint64          `json:"seq"`
	Maker      string          `json:"maker"`
	Taker      string          `json:"taker"`
	TakerSide  orderbook.Side  `json:"takerSide"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExecutedAt time.Time       `json:"executedAt"`
}

// WebSocket wire types

type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

type WSAck struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

type WSMessage struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}

func toTradeMessage(t engine.Trade) TradeMessage {
	return TradeMessage{
		ID:         t.ID,
		Seq:        t.Seq,
		Maker:      t.MakerAccountID,
		Taker:      t.TakerAccountID,
		TakerSide:  t.TakerSide,
		Price:      t.Price,
		Quantity:   t.Qty,
		ExecutedAt: t.ExecutedAt,
	}
}

func toDepthSnapshot(depth orderbook.Depth) DepthSnapshot {
	snap := DepthSnapshot{
		Bids: make([]PriceLevel, 0),
		Asks: make([]PriceLevel, 0),
	}
	for _, lvl := range depth.Bids() {
		snap.Bids = append(snap.Bids, PriceLevel{Price: lvl.Price, Side: lvl.Side, Quantity: lvl.Quantity, Orders: lvl.Orders})
	}
	for _, lvl := range depth.Asks() {
		snap.Asks = append(snap.Asks, PriceLevel{Price: lvl.Price, Side: lvl.Side, Quantity: lvl.Quantity, Orders: lvl.Orders})
	}
	return snap
}
