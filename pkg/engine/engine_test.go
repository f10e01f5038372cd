package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(accounts ...string) *Engine {
	seed := make([]ledger.Account, 0, len(accounts))
	for _, id := range accounts {
		seed = append(seed, ledger.Account{ID: id, Balances: map[string]decimal.Decimal{
			"GOOGLE": d("10"),
			"USD":    d("50000"),
		}})
	}
	return New(orderbook.NewOrderBook(), ledger.New("GOOGLE", "USD", seed))
}

func submit(t *testing.T, e *Engine, side orderbook.Side, price, qty, account string) *SubmitResult {
	t.Helper()
	res, err := e.SubmitOrder(context.Background(), side, d(price), d(qty), account)
	if err != nil {
		t.Fatalf("submit %s %s@%s by %s: %v", side, qty, price, account, err)
	}
	return res
}

func assertBalance(t *testing.T, e *Engine, account, asset, want string) {
	t.Helper()
	got := e.Balances(account)[asset]
	if !got.Equal(d(want)) {
		t.Errorf("account %s %s: expected %s, got %s", account, asset, want, got)
	}
}

func TestSimpleMatchScenario(t *testing.T) {
	e := newTestEngine("A", "B", "C")

	res := submit(t, e, orderbook.Ask, "100", "5", "A")
	if !res.Filled.IsZero() {
		t.Fatalf("expected nothing filled, got %s", res.Filled)
	}
	if res.Resting == nil || !res.Resting.Qty.Equal(d("5")) {
		t.Fatalf("expected ask of 5 resting, got %+v", res.Resting)
	}

	res = submit(t, e, orderbook.Bid, "100", "3", "B")
	if !res.Filled.Equal(d("3")) {
		t.Fatalf("expected 3 filled, got %s", res.Filled)
	}
	ask, ok := e.Best(orderbook.Ask)
	if !ok || !ask.Qty.Equal(d("2")) || !ask.Price.Equal(d("100")) {
		t.Fatalf("expected ask (100,2), got %+v", ask)
	}
	assertBalance(t, e, "A", "GOOGLE", "7")
	assertBalance(t, e, "A", "USD", "50300")
	assertBalance(t, e, "B", "GOOGLE", "13")
	assertBalance(t, e, "B", "USD", "49700")

	res = submit(t, e, orderbook.Bid, "100", "5", "C")
	if !res.Filled.Equal(d("2")) || !res.Remaining.Equal(d("3")) {
		t.Fatalf("expected 2 filled 3 remaining, got %s/%s", res.Filled, res.Remaining)
	}
	if _, ok := e.Best(orderbook.Ask); ok {
		t.Fatalf("expected ask side to be empty")
	}

	depth := e.Depth()
	if len(depth) != 1 {
		t.Fatalf("expected a single depth level, got %+v", depth)
	}
	lvl, ok := depth.Level(orderbook.Bid, d("100"))
	if !ok || !lvl.Quantity.Equal(d("3")) {
		t.Errorf("expected bid level 100 with 3, got %+v", lvl)
	}
}

func TestBidFillsAtRestingAskPrice(t *testing.T) {
	e := newTestEngine("maker", "taker")
	submit(t, e, orderbook.Ask, "95", "4", "maker")

	res := submit(t, e, orderbook.Bid, "100", "4", "taker")
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	if !res.Trades[0].Price.Equal(d("95")) {
		t.Errorf("expected execution at 95, got %s", res.Trades[0].Price)
	}
	assertBalance(t, e, "taker", "USD", "49620")
	assertBalance(t, e, "maker", "USD", "50380")
}

func TestAskFillsAtRestingBidPrice(t *testing.T) {
	e := newTestEngine("maker", "taker")
	submit(t, e, orderbook.Bid, "105", "2", "maker")

	res := submit(t, e, orderbook.Ask, "100", "2", "taker")
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !tr.Price.Equal(d("105")) {
		t.Errorf("expected execution at 105, got %s", tr.Price)
	}
	if tr.SellerID() != "taker" || tr.BuyerID() != "maker" {
		t.Errorf("unexpected counterparties seller=%s buyer=%s", tr.SellerID(), tr.BuyerID())
	}
	assertBalance(t, e, "taker", "GOOGLE", "8")
	assertBalance(t, e, "taker", "USD", "50210")
	assertBalance(t, e, "maker", "GOOGLE", "12")
	assertBalance(t, e, "maker", "USD", "49790")
}

func TestNoMatchDueToPrice(t *testing.T) {
	e := newTestEngine("A", "B")
	submit(t, e, orderbook.Ask, "100", "10", "A")

	res := submit(t, e, orderbook.Bid, "98", "10", "B")
	if len(res.Trades) != 0 || !res.Filled.IsZero() {
		t.Fatalf("expected no match, got %+v", res)
	}
	bid, _ := e.Best(orderbook.Bid)
	ask, _ := e.Best(orderbook.Ask)
	if !bid.Price.LessThan(ask.Price) {
		t.Errorf("book crossed: bid %s ask %s", bid.Price, ask.Price)
	}
}

func TestMultiLevelMatch(t *testing.T) {
	e := newTestEngine("S", "B")
	submit(t, e, orderbook.Ask, "101", "5", "S")
	submit(t, e, orderbook.Ask, "103", "5", "S")
	submit(t, e, orderbook.Ask, "102", "5", "S")
	submit(t, e, orderbook.Ask, "110", "5", "S")

	res := submit(t, e, orderbook.Bid, "105", "20", "B")
	if len(res.Trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(res.Trades))
	}
	for i, want := range []string{"101", "102", "103"} {
		if !res.Trades[i].Price.Equal(d(want)) {
			t.Errorf("leg %d: expected price %s, got %s", i, want, res.Trades[i].Price)
		}
	}
	if !res.Filled.Equal(d("15")) || !res.Remaining.Equal(d("5")) {
		t.Errorf("expected 15 filled 5 resting, got %s/%s", res.Filled, res.Remaining)
	}
	// 5*101 + 5*102 + 5*103 = 1530
	assertBalance(t, e, "B", "USD", "48470")

	bid, ok := e.Best(orderbook.Bid)
	if !ok || !bid.Price.Equal(d("105")) || !bid.Qty.Equal(d("5")) {
		t.Errorf("expected remainder resting at 105, got %+v", bid)
	}
}

func TestFIFOMatch(t *testing.T) {
	e := newTestEngine("S1", "S2", "B")
	submit(t, e, orderbook.Ask, "100", "5", "S1")
	submit(t, e, orderbook.Ask, "100", "5", "S2")

	res := submit(t, e, orderbook.Bid, "100", "7", "B")
	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[0].MakerAccountID != "S1" || res.Trades[1].MakerAccountID != "S2" {
		t.Errorf("expected FIFO makers S1 then S2, got %+v", res.Trades)
	}
	if res.Trades[0].Seq >= res.Trades[1].Seq {
		t.Errorf("expected increasing trade sequence")
	}
}

func TestRejectsInvalidInputWithoutMutation(t *testing.T) {
	e := newTestEngine("A")
	submit(t, e, orderbook.Ask, "100", "1", "A")

	tests := []struct {
		name    string
		side    orderbook.Side
		price   string
		qty     string
		account string
		wantErr error
	}{
		{name: "zero price", side: orderbook.Bid, price: "0", qty: "1", account: "A", wantErr: ErrInvalidInput},
		{name: "negative quantity", side: orderbook.Bid, price: "100", qty: "-1", account: "A", wantErr: ErrInvalidInput},
		{name: "unknown side", side: orderbook.Side("buy"), price: "100", qty: "1", account: "A", wantErr: ErrInvalidInput},
		{name: "unknown account", side: orderbook.Bid, price: "100", qty: "1", account: "ghost", wantErr: ledger.ErrUnknownAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SubmitOrder(context.Background(), tt.side, d(tt.price), d(tt.qty), tt.account)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			ask, ok := e.Best(orderbook.Ask)
			if !ok || !ask.Qty.Equal(d("1")) {
				t.Errorf("book mutated by rejected order: %+v", ask)
			}
			if _, ok := e.Best(orderbook.Bid); ok {
				t.Errorf("rejected order was rested")
			}
		})
	}
}

func TestCanceledContextRejectsBeforeMatching(t *testing.T) {
	e := newTestEngine("A", "B")
	submit(t, e, orderbook.Ask, "100", "1", "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.SubmitOrder(ctx, orderbook.Bid, d("100"), d("1"), "B"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := e.Best(orderbook.Ask); !ok {
		t.Errorf("canceled submission consumed liquidity")
	}
}

func TestTradeCallback(t *testing.T) {
	e := newTestEngine("A", "B")
	var got [][]Trade
	e.RegisterTradeCallback(func(trades []Trade) {
		got = append(got, trades)
	})

	submit(t, e, orderbook.Ask, "100", "2", "A")
	if len(got) != 0 {
		t.Fatalf("callback fired without trades")
	}
	submit(t, e, orderbook.Bid, "101", "2", "B")
	if len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("expected one batch of one trade, got %+v", got)
	}
	tr := got[0][0]
	if tr.MakerAccountID != "A" || tr.TakerAccountID != "B" || tr.ID == "" {
		t.Errorf("unexpected trade %+v", tr)
	}
}

func TestHighVolumeOrders(t *testing.T) {
	e := newTestEngine("B", "S")
	trades := 0
	e.RegisterTradeCallback(func(results []Trade) {
		trades += len(results)
	})

	num := 10_000
	for i := 0; i < num; i++ {
		side, account := orderbook.Bid, "B"
		if i%2 == 0 {
			side, account = orderbook.Ask, "S"
		}
		submit(t, e, side, "100", "10", account)
	}

	if trades != num/2 {
		t.Errorf("expected %d trades, got %d", num/2, trades)
	}
	if len(e.Depth()) != 0 {
		t.Errorf("expected empty book, got %+v", e.Depth())
	}
}

func TestConcurrentOrdersConserveBalances(t *testing.T) {
	accounts := make([]string, 8)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("acc-%d", i)
	}
	e := newTestEngine(accounts...)
	before := e.Totals()

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			price := decimal.NewFromInt(int64(99 + i%3))
			_, _ = e.SubmitOrder(context.Background(), orderbook.Bid, price, d("1.5"), accounts[i%len(accounts)])
		}(i)
		go func(i int) {
			defer wg.Done()
			price := decimal.NewFromInt(int64(99 + i%3))
			_, _ = e.SubmitOrder(context.Background(), orderbook.Ask, price, d("1.5"), accounts[(i+3)%len(accounts)])
		}(i)
	}
	wg.Wait()

	after := e.Totals()
	for asset, amount := range before {
		if !after[asset].Equal(amount) {
			t.Errorf("%s total changed from %s to %s", asset, amount, after[asset])
		}
	}
	bid, okBid := e.Best(orderbook.Bid)
	ask, okAsk := e.Best(orderbook.Ask)
	if okBid && okAsk && !bid.Price.LessThan(ask.Price) {
		t.Errorf("book crossed after concurrent load: bid %s ask %s", bid.Price, ask.Price)
	}
}

func BenchmarkSubmitOrder(b *testing.B) {
	e := newTestEngine("S", "B")
	ctx := context.Background()
	for i := 0; i < 10_000; i++ {
		_, _ = e.SubmitOrder(ctx, orderbook.Ask, decimal.NewFromInt(int64(100+i%5)), decimal.NewFromInt(10), "S")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.SubmitOrder(ctx, orderbook.Bid, decimal.NewFromInt(101), decimal.NewFromInt(10), "B")
	}
}
