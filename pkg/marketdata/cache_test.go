package marketdata

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "test")
}

func TestDepthRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Depth(ctx, "GOOGLE"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	ob := orderbook.NewOrderBook()
	for _, o := range []struct {
		side       orderbook.Side
		price, qty int64
	}{
		{orderbook.Bid, 99, 2}, {orderbook.Bid, 98, 1}, {orderbook.Bid, 99, 3}, {orderbook.Ask, 101, 4},
	} {
		if _, err := ob.Insert(o.side, orderbook.Order{AccountID: "1", Price: decimal.NewFromInt(o.price), Qty: decimal.NewFromInt(o.qty)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.OnDepth(ctx, "GOOGLE", ob.Depth()); err != nil {
		t.Fatalf("on depth: %v", err)
	}
	snap, err := c.Depth(ctx, "GOOGLE")
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Bids[0].Price.Equal(decimal.NewFromInt(99)) || !snap.Bids[0].Quantity.Equal(decimal.NewFromInt(5)) || snap.Bids[0].Orders != 2 {
		t.Errorf("unexpected best bid level %+v", snap.Bids[0])
	}
}

func TestTradesAreCapped(t *testing.T) {
	c := newTestCache(t)
	c.recentTrades = 3
	ctx := context.Background()

	var trades []engine.Trade
	for i := 1; i <= 5; i++ {
		trades = append(trades, engine.Trade{
			ID:         "t" + strconv.Itoa(i),
			Seq:        uint64(i),
			TakerSide:  orderbook.Ask,
			Price:      decimal.NewFromInt(int64(100 + i)),
			Qty:        decimal.NewFromInt(1),
			ExecutedAt: time.Now(),
		})
	}
	if err := c.OnTrades(ctx, "GOOGLE", trades); err != nil {
		t.Fatalf("on trades: %v", err)
	}

	last, err := c.LastTrade(ctx, "GOOGLE")
	if err != nil {
		t.Fatal(err)
	}
	if last.TradeID != "t5" || !last.Price.Equal(decimal.NewFromInt(105)) {
		t.Errorf("unexpected last trade %+v", last)
	}

	recent, err := c.RecentTrades(ctx, "GOOGLE", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].TradeID != "t5" || recent[2].TradeID != "t3" {
		t.Errorf("unexpected recent trades %+v", recent)
	}
}

func TestNoTradesIsNoop(t *testing.T) {
	c := newTestCache(t)
	if err := c.OnTrades(context.Background(), "GOOGLE", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.LastTrade(context.Background(), "GOOGLE"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}
