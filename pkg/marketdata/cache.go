package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/tradebus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var ErrNoSnapshot = errors.New("no market data snapshot")

const defaultRecentTrades = 100

// Level is one aggregated price level as cached.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

type DepthSnapshot struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Cache mirrors depth and recent trades into redis for readers that should
// not touch the engine.
type Cache struct {
	client       redis.UniversalClient
	prefix       string
	recentTrades int64
}

func NewCache(client redis.UniversalClient, prefix string) *Cache {
	if prefix == "" {
		prefix = "md"
	}
	return &Cache{client: client, prefix: prefix, recentTrades: defaultRecentTrades}
}

func (c *Cache) depthKey(ticker string) string  { return fmt.Sprintf("%s:%s:depth", c.prefix, ticker) }
func (c *Cache) lastKey(ticker string) string   { return fmt.Sprintf("%s:%s:last", c.prefix, ticker) }
func (c *Cache) tradesKey(ticker string) string { return fmt.Sprintf("%s:%s:trades", c.prefix, ticker) }

func (c *Cache) OnDepth(ctx context.Context, ticker string, depth orderbook.Depth) error {
	snap := DepthSnapshot{Bids: toLevels(depth.Bids()), Asks: toLevels(depth.Asks())}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.depthKey(ticker), b, 0).Err()
}

// OnTrades records the last trade and keeps the newest trades in a capped
// list, newest first.
func (c *Cache) OnTrades(ctx context.Context, ticker string, trades []engine.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(trades))
	var last []byte
	for _, t := range trades {
		b, err := json.Marshal(tradebus.NewTradeEvent(ticker, t))
		if err != nil {
			return err
		}
		values = append(values, b)
		last = b
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.lastKey(ticker), last, 0)
	pipe.LPush(ctx, c.tradesKey(ticker), values...)
	pipe.LTrim(ctx, c.tradesKey(ticker), 0, c.recentTrades-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) Depth(ctx context.Context, ticker string) (*DepthSnapshot, error) {
	b, err := c.client.Get(ctx, c.depthKey(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var snap DepthSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Cache) LastTrade(ctx context.Context, ticker string) (*tradebus.TradeEvent, error) {
	b, err := c.client.Get(ctx, c.lastKey(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var ev tradebus.TradeEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// RecentTrades returns up to n cached trades, newest first.
func (c *Cache) RecentTrades(ctx context.Context, ticker string, n int64) ([]tradebus.TradeEvent, error) {
	raw, err := c.client.LRange(ctx, c.tradesKey(ticker), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]tradebus.TradeEvent, 0, len(raw))
	for _, s := range raw {
		var ev tradebus.TradeEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func toLevels(levels []orderbook.DepthLevel) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, Level{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders})
	}
	return out
}
