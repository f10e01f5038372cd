package fixgateway

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
)

type Config struct {
	SettingsFile string
	Ticker       string
	App          AppConfig
}

// Gateway runs a FIX acceptor that feeds NewOrderSingle messages into the
// exchange.
type Gateway struct {
	cfg       Config
	submitter OrderSubmitter
	logger    *logging.Logger

	app      *Application
	acceptor *quickfix.Acceptor
}

func NewGateway(cfg Config, submitter OrderSubmitter, logger *logging.Logger) *Gateway {
	return &Gateway{cfg: cfg, submitter: submitter, logger: logger}
}

func (g *Gateway) Start() error {
	stringData, err := os.ReadFile(g.cfg.SettingsFile)
	if err != nil {
		return fmt.Errorf("error reading %v: %w", g.cfg.SettingsFile, err)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(stringData))
	if err != nil {
		return fmt.Errorf("error parsing fix settings: %w", err)
	}

	app := newApplication(g.cfg.App, g.cfg.Ticker, g.submitter, g.logger)

	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return fmt.Errorf("unable to create fix log factory: %w", err)
	}
	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create acceptor: %w", err)
	}

	if err := acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %w", err)
	}

	g.app = app
	g.acceptor = acceptor
	return nil
}

func (g *Gateway) Stop() {
	if g.acceptor != nil {
		g.acceptor.Stop()
	}
	if g.app != nil {
		g.app.close()
	}
}
