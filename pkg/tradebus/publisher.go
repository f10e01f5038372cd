package tradebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joripage/matching-engine/pkg/engine"
	kafka "github.com/segmentio/kafka-go"
)

// Publisher writes every trade to the trade topic keyed by ticker, so one
// instrument's trades land on one partition in sequence order.
type Publisher struct {
	producer *Producer
	topic    string
}

func NewPublisher(producer *Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) OnTrades(ctx context.Context, ticker string, trades []engine.Trade) error {
	msgs := make([]kafka.Message, 0, len(trades))
	for _, t := range trades {
		b, err := json.Marshal(NewTradeEvent(ticker, t))
		if err != nil {
			return fmt.Errorf("encode trade %s: %w", t.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(ticker),
			Value: b,
			Time:  t.ExecutedAt,
			Headers: []kafka.Header{
				{Key: "trade_id", Value: []byte(t.ID)},
			},
		})
	}
	return p.producer.Publish(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
