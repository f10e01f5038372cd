package fixgateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/joripage/matching-engine/pkg/exchange"
	"github.com/joripage/matching-engine/pkg/logging"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// OrderSubmitter is the exchange operation the gateway drives.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResponse, error)
}

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	dispatcher chan *inboundMsg
	shardQueue *shardqueue.Shardqueue

	// guards the queues against enqueue after close
	mu     sync.RWMutex
	closed bool

	ticker    string
	submitter OrderSubmitter
	logger    *logging.Logger

	send  func(m quickfix.Messagable, sessionID quickfix.SessionID) error
	newID func() string
	now   func() time.Time
}

// AppConfig selects how inbound messages reach the router. With neither
// queue enabled messages are routed on the session goroutine.
type AppConfig struct {
	EnableQueue      bool
	EnableShardQueue bool
	NumShards        int
	QueueSize        int
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const (
	defaultNumShards = 16
	defaultQueueSize = 100_000
)

func newApplication(cfg AppConfig, ticker string, submitter OrderSubmitter, logger *logging.Logger) *Application {
	if cfg.NumShards <= 0 {
		cfg.NumShards = defaultNumShards
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		ticker:        ticker,
		submitter:     submitter,
		logger:        logger,
		send:          quickfix.SendToTarget,
		newID:         uuid.NewString,
		now:           time.Now,
	}

	app.AddRoute(fix44nos.Route(app.onNewOrderSingle44))
	app.AddRoute(fix42nos.Route(app.onNewOrderSingle42))

	if app.cfg.EnableShardQueue {
		app.shardQueue = shardqueue.NewShardQueue(cfg.NumShards, cfg.QueueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				app.routeLogged(v)
			}
			return nil
		})
	} else if app.cfg.EnableQueue {
		app.dispatcher = make(chan *inboundMsg, cfg.QueueSize)
		go app.runDispatcher()
	}

	return app
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) (reject quickfix.MessageRejectError) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return quickfix.NewBusinessMessageRejectError("gateway stopped", 0, nil)
	}

	if a.cfg.EnableShardQueue {
		a.shardQueue.Shard(getRoutingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	} else if a.cfg.EnableQueue {
		a.dispatcher <- &inboundMsg{msg, sessionID}
		return nil
	}

	return a.Route(msg, sessionID)
}

// getRoutingKey keeps one account's orders on one shard so they reach the
// engine in the order they were sent.
func getRoutingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if account, err := msg.Body.GetString(tag.Account); err == nil && account != "" {
		return account
	}

	return sessionID.String()
}

func (a *Application) runDispatcher() {
	for msg := range a.dispatcher {
		a.routeLogged(msg)
	}
}

func (a *Application) routeLogged(in *inboundMsg) {
	if err := a.Route(in.msg, in.sessionID); err != nil {
		a.logger.Warn(context.Background(), "fix route error",
			zap.String("session", in.sessionID.String()),
			zap.Error(err))
	}
}

// close stops the queue workers once already queued messages are routed.
// Messages arriving afterwards are rejected.
func (a *Application) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	if a.shardQueue != nil {
		a.shardQueue.Stop()
	}
	if a.dispatcher != nil {
		close(a.dispatcher)
	}
}

func (a *Application) onNewOrderSingle44(msg fix44nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.handleNewOrderSingle(fromFix44(msg, sessionID))
	return nil
}

func (a *Application) onNewOrderSingle42(msg fix42nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.handleNewOrderSingle(fromFix42(msg, sessionID))
	return nil
}

// handleNewOrderSingle submits the order and answers with execution reports.
// Business rejections go back as 35=8 with 39=8, never as session rejects.
func (a *Application) handleNewOrderSingle(nos *NewOrderSingle) {
	ctx := logging.WithRequestID(context.Background(), nos.ClOrdID)
	orderID := a.newID()

	req, err := toOrderRequest(nos, a.ticker)
	if err == nil {
		var resp *exchange.OrderResponse
		resp, err = a.submitter.SubmitOrder(ctx, req)
		if err == nil {
			for _, r := range buildReports(nos, orderID, resp, a.newID, a.now()) {
				a.sendReport(ctx, nos.SessionID, r)
			}
			return
		}
	}

	a.logger.Warn(ctx, "fix order rejected",
		zap.String("account", nos.Account),
		zap.String("clOrdID", nos.ClOrdID),
		zap.Error(err))
	a.sendReport(ctx, nos.SessionID, rejectReport(nos, orderID, a.newID(), err, a.now()))
}

func (a *Application) sendReport(ctx context.Context, sessionID quickfix.SessionID, r ExecReport) {
	if err := a.send(toMessagable(sessionID.BeginString, r), sessionID); err != nil {
		a.logger.Error(ctx, "send execution report failed",
			zap.String("session", sessionID.String()),
			zap.String("execID", r.ExecID),
			zap.Error(err))
	}
}
