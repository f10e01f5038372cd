package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine matches incoming limit orders against one OrderBook and settles
// every fill through the Ledger.
//
// All submissions go through a single write lock so that reading the book,
// matching, settling and resting the remainder happen as one unit. Queries
// take the read lock and never observe a half-applied match.
type Engine struct {
	mu     sync.RWMutex
	book   *orderbook.OrderBook
	ledger *ledger.Ledger

	callbacks []func([]Trade)
	tradeSeq  uint64

	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func New(book *orderbook.OrderBook, l *ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		book:   book,
		ledger: l,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterTradeCallback adds fn to the subscribers notified after every
// submission that produced trades. Callbacks run inside the critical section,
// in match order, and must not call back into the engine.
func (e *Engine) RegisterTradeCallback(fn func(trades []Trade)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.callbacks = append(e.callbacks, fn)
}

// SubmitOrder matches a limit order against the opposite side, best price
// first, and rests whatever is left at the order's own limit price.
// Every fill executes at the resting order's price.
//
// Invalid input and unknown takers are rejected before anything is touched.
// Once matching has started it runs to completion; ctx is not consulted
// mid-match.
func (e *Engine) SubmitOrder(ctx context.Context, side orderbook.Side, price, qty decimal.Decimal, accountID string) (*SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidInput, side)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price %s", ErrInvalidInput, price)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: quantity %s", ErrInvalidInput, qty)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ledger.Has(accountID) {
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownAccount, accountID)
	}

	result, err := e.match(side, price, qty, accountID)
	if len(result.Trades) > 0 {
		for _, cb := range e.callbacks {
			cb(result.Trades)
		}
	}
	if err != nil {
		return result, err
	}

	if result.Remaining.IsPositive() {
		resting, err := e.book.Insert(side, orderbook.Order{
			AccountID: accountID,
			Price:     price,
			Qty:       result.Remaining,
		})
		if err != nil {
			return result, err
		}
		result.Resting = &resting
	}

	return result, nil
}

func (e *Engine) match(side orderbook.Side, price, qty decimal.Decimal, accountID string) (*SubmitResult, error) {
	result := &SubmitResult{Remaining: qty}
	counter := side.Opposite()

	for result.Remaining.IsPositive() {
		best, ok := e.book.Best(counter)
		if !ok || !crosses(side, price, best.Price) {
			break
		}

		fill := decimal.Min(best.Qty, result.Remaining)

		seller, buyer := best.AccountID, accountID
		if side == orderbook.Ask {
			seller, buyer = accountID, best.AccountID
		}

		// settle before touching the book so a failed transfer leaves this
		// leg entirely unapplied
		if err := e.ledger.Transfer(seller, buyer, fill, best.Price); err != nil {
			e.logger.Warn("settlement failed, stopping match",
				zap.String("maker", best.AccountID),
				zap.String("taker", accountID),
				zap.String("price", best.Price.String()),
				zap.String("qty", fill.String()),
				zap.Error(err))
			result.Filled = qty.Sub(result.Remaining)
			return result, err
		}

		if _, err := e.book.PopOrReduce(counter, fill); err != nil {
			// unreachable while fill <= best.Qty
			e.logger.Error("book reduce failed after settlement", zap.Error(err))
			result.Filled = qty.Sub(result.Remaining)
			return result, err
		}

		result.Remaining = result.Remaining.Sub(fill)
		result.Trades = append(result.Trades, e.newTrade(side, accountID, best, fill))
	}

	result.Filled = qty.Sub(result.Remaining)
	return result, nil
}

func (e *Engine) newTrade(side orderbook.Side, taker string, maker orderbook.Order, qty decimal.Decimal) Trade {
	e.tradeSeq++
	return Trade{
		ID:             e.newID(),
		Seq:            e.tradeSeq,
		MakerAccountID: maker.AccountID,
		TakerAccountID: taker,
		TakerSide:      side,
		Price:          maker.Price,
		Qty:            qty,
		ExecutedAt:     e.now(),
	}
}

func crosses(side orderbook.Side, limit, resting decimal.Decimal) bool {
	if side == orderbook.Bid {
		return resting.LessThanOrEqual(limit)
	}
	return resting.GreaterThanOrEqual(limit)
}

func (e *Engine) Depth() orderbook.Depth {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.book.Depth()
}

func (e *Engine) Best(side orderbook.Side) (orderbook.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.book.Best(side)
}

// Orders returns a priority-ordered copy of one side of the book.
func (e *Engine) Orders(side orderbook.Side) []orderbook.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.book.Orders(side)
}

func (e *Engine) Balances(accountID string) map[string]decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ledger.Balances(accountID)
}

func (e *Engine) Totals() map[string]decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ledger.Totals()
}
