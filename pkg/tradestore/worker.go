package tradestore

import (
	"context"

	"github.com/joripage/matching-engine/pkg/tradebus"
	"go.uber.org/zap"
)

// Worker persists trade events consumed from the trade topic.
type Worker struct {
	trade ITrade
}

func NewWorker(repo IRepo) *Worker {
	return &Worker{
		trade: repo.Trade(),
	}
}

// StartConsumer blocks until ctx is done.
func (w *Worker) StartConsumer(ctx context.Context, cg *tradebus.ConsumerGroup) error {
	return cg.Run(ctx, w.HandleTrades)
}

// HandleTrades stores one batch; redelivered trade ids are skipped.
func (w *Worker) HandleTrades(ctx context.Context, events []tradebus.TradeEvent) error {
	records := make([]*TradeRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, FromEvent(ev))
	}
	if err := w.trade.BulkCreate(ctx, records); err != nil {
		return err
	}

	zap.S().Debugf("stored %d trades", len(records))
	return nil
}
