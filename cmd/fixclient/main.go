package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
)

type options struct {
	symbol string
	buyer  string
	seller string
	price  decimal.Decimal
	qty    decimal.Decimal
	pairs  int
}

type InitiatorApp struct {
	opts   options
	fills  atomic.Int64
	reject atomic.Int64
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	log.Println("Logon success", sessionID)
	go a.sendCrossingPairs(sessionID)
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID) {
	log.Printf("Logout %s: fills=%d rejects=%d", sessionID, a.fills.Load(), a.reject.Load())
}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	execType, err := msg.Body.GetString(tag.ExecType)
	if err != nil {
		return nil
	}
	clOrdID, _ := msg.Body.GetString(tag.ClOrdID)
	switch enum.ExecType(execType) {
	case enum.ExecType_TRADE, enum.ExecType_FILL, enum.ExecType_PARTIAL_FILL:
		a.fills.Add(1)
		px, _ := msg.Body.GetString(tag.LastPx)
		log.Printf("fill %s @ %s", clOrdID, px)
	case enum.ExecType_REJECTED:
		a.reject.Add(1)
		text, _ := msg.Body.GetString(tag.Text)
		log.Printf("reject %s: %s", clOrdID, text)
	}
	return nil
}

// sendCrossingPairs rests an ask then sends a bid at the same price, so every
// pair should produce one fill.
func (a *InitiatorApp) sendCrossingPairs(sessionID quickfix.SessionID) {
	start := time.Now()
	for i := 0; i < a.opts.pairs; i++ {
		if err := quickfix.SendToTarget(a.newOrder(enum.Side_SELL, a.opts.seller), sessionID); err != nil {
			log.Println("send sell:", err)
			return
		}
		if err := quickfix.SendToTarget(a.newOrder(enum.Side_BUY, a.opts.buyer), sessionID); err != nil {
			log.Println("send buy:", err)
			return
		}
	}
	elapsed := time.Since(start)
	log.Printf("sent %d orders in %s (%.0f msg/s)", a.opts.pairs*2, elapsed, float64(a.opts.pairs*2)/elapsed.Seconds())
}

func (a *InitiatorApp) newOrder(side enum.Side, account string) fix44nos.NewOrderSingle {
	order := fix44nos.New(
		field.NewClOrdID(randSeq(17)),
		field.NewSide(side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	order.SetSymbol(a.opts.symbol)
	order.SetAccount(account)
	order.SetPrice(a.opts.price, 2)
	order.SetOrderQty(a.opts.qty, 0)
	order.SetTimeInForce(enum.TimeInForce_DAY)
	return order
}

func main() {
	var (
		cfgPath string
		price   string
		qty     string
		opts    options
	)
	flag.StringVar(&cfgPath, "config", "./config/fixclient.cfg", "quickfix initiator settings")
	flag.StringVar(&opts.symbol, "symbol", "GOOGLE", "instrument ticker")
	flag.StringVar(&opts.buyer, "buyer", "2", "buying account")
	flag.StringVar(&opts.seller, "seller", "1", "selling account")
	flag.StringVar(&price, "price", "100", "limit price for both sides")
	flag.StringVar(&qty, "qty", "1", "quantity per order")
	flag.IntVar(&opts.pairs, "pairs", 10, "number of crossing ask/bid pairs")
	flag.Parse()

	var err error
	if opts.price, err = decimal.NewFromString(price); err != nil {
		log.Fatal("price: ", err)
	}
	if opts.qty, err = decimal.NewFromString(qty); err != nil {
		log.Fatal("qty: ", err)
	}

	log.Println("cfgPath:", cfgPath)
	app := &InitiatorApp{opts: opts}

	cfg, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		log.Fatal(err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()
	logFactory, err := file.NewLogFactory(settings)
	if err != nil {
		log.Fatal(err)
	}
	initiator, err := quickfix.NewInitiator(app, storeFactory, settings, logFactory)
	if err != nil {
		log.Fatal(err)
	}
	if err = initiator.Start(); err != nil {
		log.Fatal(err)
	}
	log.Println("Initiator started...")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	initiator.Stop()
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
