package fixgateway

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// NewOrderSingle is the version-independent view of an inbound 35=D.
type NewOrderSingle struct {
	SessionID quickfix.SessionID

	Account      string
	ClOrdID      string
	Symbol       string
	OrdType      enum.OrdType
	Price        decimal.Decimal
	Side         enum.Side
	TransactTime time.Time
	OrderQty     decimal.Decimal
}

// ExecReport is the version-independent view of an outbound 35=8.
type ExecReport struct {
	OrderID      string
	ExecID       string
	ClOrdID      string
	Account      string
	Symbol       string
	Side         enum.Side
	ExecType     enum.ExecType
	OrdStatus    enum.OrdStatus
	OrderQty     decimal.Decimal
	Price        decimal.Decimal
	LastQty      decimal.Decimal
	LastPx       decimal.Decimal
	CumQty       decimal.Decimal
	LeavesQty    decimal.Decimal
	AvgPx        decimal.Decimal
	Text         string
	TransactTime time.Time
}

func (r ExecReport) isFill() bool {
	return r.LastQty.IsPositive()
}
