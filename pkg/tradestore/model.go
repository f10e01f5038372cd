package tradestore

import (
	"time"

	"github.com/joripage/matching-engine/pkg/tradebus"
	"github.com/shopspring/decimal"
)

type TradeRecord struct {
	ID           int64           `gorm:"primaryKey"`
	TradeID      string          `gorm:"column:trade_id;uniqueIndex;size:64;not null"`
	Seq          uint64          `gorm:"column:seq;not null"`
	Ticker       string          `gorm:"column:ticker;size:32;not null"`
	MakerAccount string          `gorm:"column:maker_account;index;size:64;not null"`
	TakerAccount string          `gorm:"column:taker_account;index;size:64;not null"`
	TakerSide    string          `gorm:"column:taker_side;size:8;not null"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric;not null"`
	ExecutedAt   time.Time       `gorm:"column:executed_at;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (TradeRecord) TableName() string {
	return "trades"
}

func FromEvent(ev tradebus.TradeEvent) *TradeRecord {
	return &TradeRecord{
		TradeID:      ev.TradeID,
		Seq:          ev.Seq,
		Ticker:       ev.Ticker,
		MakerAccount: ev.MakerAccountID,
		TakerAccount: ev.TakerAccountID,
		TakerSide:    ev.TakerSide,
		Price:        ev.Price,
		Quantity:     ev.Quantity,
		ExecutedAt:   ev.ExecutedAt,
	}
}
