package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

const (
	minPriceCents = 10000
	maxPriceCents = 20000
	minQty        = 1
	maxQty        = 100
	numAccounts   = 100
)

func randomOrder(r *rand.Rand) (orderbook.Side, decimal.Decimal, decimal.Decimal, string) {
	side := orderbook.Bid
	if r.Intn(2) == 0 {
		side = orderbook.Ask
	}
	price := decimal.New(int64(minPriceCents+r.Intn(maxPriceCents-minPriceCents+1)), -2)
	qty := decimal.NewFromInt(int64(r.Intn(maxQty-minQty+1) + minQty))
	return side, price, qty, strconv.Itoa(r.Intn(numAccounts))
}

func main() {
	var numOrders int
	var seed int64
	flag.IntVar(&numOrders, "orders", 1_000_000, "Number of orders to submit")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	accounts := make([]ledger.Account, 0, numAccounts)
	for i := 0; i < numAccounts; i++ {
		accounts = append(accounts, ledger.Account{ID: strconv.Itoa(i), Balances: map[string]decimal.Decimal{
			"ABC": decimal.NewFromInt(1_000_000),
			"USD": decimal.NewFromInt(1_000_000_000),
		}})
	}
	l := ledger.New("ABC", "USD", accounts)
	e := engine.New(orderbook.NewOrderBook(), l)

	totalMatched := 0
	totalQty := decimal.Zero
	e.RegisterTradeCallback(func(trades []engine.Trade) {
		for _, t := range trades {
			totalMatched++
			totalQty = totalQty.Add(t.Qty)
			if totalMatched <= 5 {
				log.Printf("match: maker[%s] taker[%s] %s @ %s qty %s",
					t.MakerAccountID, t.TakerAccountID, t.TakerSide, t.Price, t.Qty)
			}
		}
	})

	before := l.Totals()
	r := rand.New(rand.NewSource(seed))
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		side, price, qty, account := randomOrder(r)
		if _, err := e.SubmitOrder(ctx, side, price, qty, account); err != nil {
			log.Fatalf("order %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	after := l.Totals()
	for asset, amount := range before {
		if !after[asset].Equal(amount) {
			log.Fatalf("%s not conserved: %s -> %s", asset, amount, after[asset])
		}
	}

	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", numOrders)
	fmt.Printf("Total Matches    : %d\n", totalMatched)
	fmt.Printf("Total Matched Qty: %s\n", totalQty)
	fmt.Printf("Resting bids/asks: %d/%d\n", len(e.Orders(orderbook.Bid)), len(e.Orders(orderbook.Ask)))
	fmt.Printf("Time Taken       : %s (%.0f orders/s)\n", elapsed, float64(numOrders)/elapsed.Seconds())
}
