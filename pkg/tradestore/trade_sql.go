package tradestore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (s *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// BulkCreate inserts records, skipping trade ids already stored so a
// redelivered batch is a no-op.
func (r *TradeSQLRepo) BulkCreate(ctx context.Context, records []*TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.dbWithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "trade_id"}}, DoNothing: true}).
		Create(records).Error
}

// ListByAccount returns the account's trades on either side, oldest first.
func (r *TradeSQLRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]*TradeRecord, error) {
	var out []*TradeRecord
	q := r.dbWithContext(ctx).
		Where("maker_account = ? OR taker_account = ?", accountID, accountID).
		Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}
