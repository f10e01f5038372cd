package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/quote"
	"github.com/joripage/matching-engine/pkg/riskrule"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeSink receives the trades of one submission, in match order.
type TradeSink interface {
	OnTrades(ctx context.Context, ticker string, trades []engine.Trade) error
}

// DepthSink receives the book depth after every accepted submission.
type DepthSink interface {
	OnDepth(ctx context.Context, ticker string, depth orderbook.Depth) error
}

type Config struct {
	BaseAsset  string
	QuoteAsset string
	Accounts   []ledger.Account
	Rules      []riskrule.RiskRule
	Logger     *logging.Logger
	EngineOpts []engine.Option
}

// Exchange owns one book and its ledger and exposes the four operations
// every transport is built on.
type Exchange struct {
	ticker    string
	engine    *engine.Engine
	ledger    *ledger.Ledger
	estimator *quote.Estimator
	rules     []riskrule.RiskRule
	logger    *logging.Logger

	sinkMu     sync.RWMutex
	tradeSinks []TradeSink
	depthSinks []DepthSink
}

func New(cfg Config) *Exchange {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Wrap(zap.NewNop())
	}
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = []riskrule.RiskRule{riskrule.WellFormedRule{}}
	}

	l := ledger.New(cfg.BaseAsset, cfg.QuoteAsset, cfg.Accounts)
	opts := append([]engine.Option{engine.WithLogger(logger.Zap())}, cfg.EngineOpts...)
	eng := engine.New(orderbook.NewOrderBook(), l, opts...)

	return &Exchange{
		ticker:    cfg.BaseAsset,
		engine:    eng,
		ledger:    l,
		estimator: quote.NewEstimator(eng),
		rules:     rules,
		logger:    logger,
	}
}

func (x *Exchange) Ticker() string     { return x.ticker }
func (x *Exchange) QuoteAsset() string { return x.ledger.QuoteAsset() }

// Engine exposes the engine for in-process subscribers.
func (x *Exchange) Engine() *engine.Engine { return x.engine }

func (x *Exchange) RegisterTradeSink(s TradeSink) {
	x.sinkMu.Lock()
	defer x.sinkMu.Unlock()
	x.tradeSinks = append(x.tradeSinks, s)
}

func (x *Exchange) RegisterDepthSink(s DepthSink) {
	x.sinkMu.Lock()
	defer x.sinkMu.Unlock()
	x.depthSinks = append(x.depthSinks, s)
}

// SubmitOrder validates req, matches it and rests any remainder. The
// response reports how much filled immediately.
func (x *Exchange) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	order := &riskrule.Order{
		Side:      req.Side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		AccountID: req.AccountID,
	}
	if err := riskrule.Check(order, x.rules...); err != nil {
		x.logger.Warn(ctx, "order rejected",
			zap.String("account", req.AccountID),
			zap.String("side", string(req.Side)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	res, err := x.engine.SubmitOrder(ctx, req.Side, req.Price, req.Quantity, req.AccountID)
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			x.logger.Warn(ctx, "order from unknown account", zap.String("account", req.AccountID))
		}
		if res == nil {
			return nil, err
		}
		// a settlement failure mid-match still produced trades that must go out
		x.publish(ctx, res.Trades)
		return nil, err
	}

	x.publish(ctx, res.Trades)

	x.logger.Debug(ctx, "order processed",
		zap.String("account", req.AccountID),
		zap.String("side", string(req.Side)),
		zap.String("price", req.Price.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("filled", res.Filled.String()),
		zap.Int("trades", len(res.Trades)))

	resp := &OrderResponse{FilledQuantity: res.Filled}
	for _, tr := range res.Trades {
		resp.Trades = append(resp.Trades, TradeView{ID: tr.ID, Price: tr.Price, Qty: tr.Qty})
	}
	return resp, nil
}

// publish runs outside the engine lock; sink failures are logged and never
// undo a settled match.
func (x *Exchange) publish(ctx context.Context, trades []engine.Trade) {
	x.sinkMu.RLock()
	tradeSinks := x.tradeSinks
	depthSinks := x.depthSinks
	x.sinkMu.RUnlock()

	if len(trades) > 0 {
		for _, s := range tradeSinks {
			if err := s.OnTrades(ctx, x.ticker, trades); err != nil {
				x.logger.Warn(ctx, "trade sink failed", zap.Int("trades", len(trades)), zap.Error(err))
			}
		}
	}

	if len(depthSinks) == 0 {
		return
	}
	depth := x.engine.Depth()
	for _, s := range depthSinks {
		if err := s.OnDepth(ctx, x.ticker, depth); err != nil {
			x.logger.Warn(ctx, "depth sink failed", zap.Error(err))
		}
	}
}

func (x *Exchange) GetDepth(ctx context.Context) orderbook.Depth {
	return x.engine.Depth()
}

// GetBalances returns a copy of accountID's balances. Unknown accounts read
// as zero in both assets.
func (x *Exchange) GetBalances(ctx context.Context, accountID string) map[string]decimal.Decimal {
	return x.engine.Balances(accountID)
}

// HasAccount reports whether accountID exists in the ledger.
func (x *Exchange) HasAccount(accountID string) bool {
	return x.ledger.Has(accountID)
}

// EstimateQuote prices req against the current book without trading.
func (x *Exchange) EstimateQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if !req.Side.Valid() {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidInput, req.Side)
	}
	cost, err := x.estimator.Estimate(req.Side, req.Quantity)
	if err != nil {
		if errors.Is(err, quote.ErrInvalidQuantity) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	return &QuoteResponse{Quote: cost}, nil
}
