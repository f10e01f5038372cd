package fixgateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/joripage/matching-engine/pkg/exchange"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix42er "github.com/quickfixgo/fix42/executionreport"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedOrdType = errors.New("only limit orders are accepted")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrUnsupportedSide    = errors.New("unsupported side")
)

var SideMapping = map[enum.Side]orderbook.Side{
	enum.Side_BUY:  orderbook.Bid,
	enum.Side_SELL: orderbook.Ask,
}

func fromFix44(msg fix44nos.NewOrderSingle, sessionID quickfix.SessionID) *NewOrderSingle {
	clOrdID, _ := msg.GetClOrdID()
	account, _ := msg.GetAccount()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()
	transactTime, _ := msg.GetTransactTime()

	return &NewOrderSingle{
		SessionID:    sessionID,
		Account:      account,
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		OrdType:      ordType,
		Price:        price,
		Side:         side,
		TransactTime: transactTime,
		OrderQty:     orderQty,
	}
}

func fromFix42(msg fix42nos.NewOrderSingle, sessionID quickfix.SessionID) *NewOrderSingle {
	clOrdID, _ := msg.GetClOrdID()
	account, _ := msg.GetAccount()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()
	transactTime, _ := msg.GetTransactTime()

	return &NewOrderSingle{
		SessionID:    sessionID,
		Account:      account,
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		OrdType:      ordType,
		Price:        price,
		Side:         side,
		TransactTime: transactTime,
		OrderQty:     orderQty,
	}
}

// toOrderRequest maps a FIX limit order onto the exchange. Range checks on
// price and quantity are left to the exchange's rules.
func toOrderRequest(nos *NewOrderSingle, ticker string) (exchange.OrderRequest, error) {
	if nos.OrdType != enum.OrdType_LIMIT {
		return exchange.OrderRequest{}, fmt.Errorf("%w: 40=%s", ErrUnsupportedOrdType, nos.OrdType)
	}
	if nos.Symbol != ticker {
		return exchange.OrderRequest{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, nos.Symbol)
	}
	side, ok := SideMapping[nos.Side]
	if !ok {
		return exchange.OrderRequest{}, fmt.Errorf("%w: 54=%s", ErrUnsupportedSide, nos.Side)
	}
	return exchange.OrderRequest{
		Side:      side,
		Price:     nos.Price,
		Quantity:  nos.OrderQty,
		AccountID: nos.Account,
	}, nil
}

// buildReports turns the outcome of one submission into the taker's
// execution reports: an ack, then one report per fill.
func buildReports(nos *NewOrderSingle, orderID string, resp *exchange.OrderResponse, newExecID func() string, now time.Time) []ExecReport {
	base := ExecReport{
		OrderID:      orderID,
		ClOrdID:      nos.ClOrdID,
		Account:      nos.Account,
		Symbol:       nos.Symbol,
		Side:         nos.Side,
		OrderQty:     nos.OrderQty,
		Price:        nos.Price,
		LastQty:      decimal.Zero,
		LastPx:       decimal.Zero,
		CumQty:       decimal.Zero,
		LeavesQty:    nos.OrderQty,
		AvgPx:        decimal.Zero,
		TransactTime: now,
	}

	ack := base
	ack.ExecID = newExecID()
	ack.ExecType = enum.ExecType_NEW
	ack.OrdStatus = enum.OrdStatus_NEW
	reports := []ExecReport{ack}

	cum := decimal.Zero
	notional := decimal.Zero
	for _, tr := range resp.Trades {
		cum = cum.Add(tr.Qty)
		notional = notional.Add(tr.Qty.Mul(tr.Price))

		fill := base
		fill.ExecID = tr.ID
		fill.ExecType = enum.ExecType_TRADE
		fill.LastQty = tr.Qty
		fill.LastPx = tr.Price
		fill.CumQty = cum
		fill.LeavesQty = nos.OrderQty.Sub(cum)
		fill.AvgPx = notional.DivRound(cum, 8)
		fill.OrdStatus = enum.OrdStatus_PARTIALLY_FILLED
		if !fill.LeavesQty.IsPositive() {
			fill.OrdStatus = enum.OrdStatus_FILLED
		}
		reports = append(reports, fill)
	}
	return reports
}

func rejectReport(nos *NewOrderSingle, orderID, execID string, reason error, now time.Time) ExecReport {
	return ExecReport{
		OrderID:      orderID,
		ExecID:       execID,
		ClOrdID:      nos.ClOrdID,
		Account:      nos.Account,
		Symbol:       nos.Symbol,
		Side:         nos.Side,
		ExecType:     enum.ExecType_REJECTED,
		OrdStatus:    enum.OrdStatus_REJECTED,
		OrderQty:     nos.OrderQty,
		Price:        nos.Price,
		LastQty:      decimal.Zero,
		LastPx:       decimal.Zero,
		CumQty:       decimal.Zero,
		LeavesQty:    decimal.Zero,
		AvgPx:        decimal.Zero,
		Text:         reason.Error(),
		TransactTime: now,
	}
}

func scale(d decimal.Decimal) int32 {
	if d.Exponent() >= 0 {
		return 0
	}
	return -d.Exponent()
}

func toFix44(r ExecReport) fix44er.ExecutionReport {
	msg := fix44er.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecType(r.ExecType),
		field.NewOrdStatus(r.OrdStatus),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.LeavesQty, scale(r.LeavesQty)),
		field.NewCumQty(r.CumQty, scale(r.CumQty)),
		field.NewAvgPx(r.AvgPx, scale(r.AvgPx)),
	)
	msg.SetClOrdID(r.ClOrdID)
	msg.SetAccount(r.Account)
	msg.SetSymbol(r.Symbol)
	msg.SetOrderQty(r.OrderQty, scale(r.OrderQty))
	msg.SetPrice(r.Price, scale(r.Price))
	msg.SetTransactTime(r.TransactTime)
	if r.isFill() {
		msg.SetLastQty(r.LastQty, scale(r.LastQty))
		msg.SetLastPx(r.LastPx, scale(r.LastPx))
	}
	if r.Text != "" {
		msg.SetText(r.Text)
	}
	return msg
}

// toFix42 differs from 4.4 in the mandatory ExecTransType and in reporting
// fills as partial fill / fill exec types.
func toFix42(r ExecReport) fix42er.ExecutionReport {
	execType := r.ExecType
	if execType == enum.ExecType_TRADE {
		execType = enum.ExecType_PARTIAL_FILL
		if r.OrdStatus == enum.OrdStatus_FILLED {
			execType = enum.ExecType_FILL
		}
	}

	msg := fix42er.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecTransType(enum.ExecTransType_NEW),
		field.NewExecType(execType),
		field.NewOrdStatus(r.OrdStatus),
		field.NewSymbol(r.Symbol),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.LeavesQty, scale(r.LeavesQty)),
		field.NewCumQty(r.CumQty, scale(r.CumQty)),
		field.NewAvgPx(r.AvgPx, scale(r.AvgPx)),
	)
	msg.SetClOrdID(r.ClOrdID)
	msg.SetAccount(r.Account)
	msg.SetOrderQty(r.OrderQty, scale(r.OrderQty))
	msg.SetPrice(r.Price, scale(r.Price))
	msg.SetTransactTime(r.TransactTime)
	if r.isFill() {
		msg.SetLastShares(r.LastQty, scale(r.LastQty))
		msg.SetLastPx(r.LastPx, scale(r.LastPx))
	}
	if r.Text != "" {
		msg.SetText(r.Text)
	}
	return msg
}

func toMessagable(beginString string, r ExecReport) quickfix.Messagable {
	if beginString == quickfix.BeginStringFIX42 {
		return toFix42(r)
	}
	return toFix44(r)
}
