package tradestore

import (
	"context"

	"gorm.io/gorm"
)

type ITrade interface {
	BulkCreate(ctx context.Context, records []*TradeRecord) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*TradeRecord, error)
}

type IRepo interface {
	Trade() ITrade
}

type Repo struct {
	tradeDB *gorm.DB
}

func NewRepo(tradeDB *gorm.DB) IRepo {
	return &Repo{
		tradeDB: tradeDB,
	}
}

func (r *Repo) Trade() ITrade {
	return NewTradeSQLRepo(r.tradeDB)
}
