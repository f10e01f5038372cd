package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	postgres_wrapper "github.com/joripage/matching-engine/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/matching-engine/pkg/infra/redis"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	Instrument  InstrumentConfig                 `yaml:"instrument"`
	Accounts    []AccountConfig                  `yaml:"accounts"`
	HTTP        HTTPConfig                       `yaml:"http"`
	Fix         FixConfig                        `yaml:"fix"`
	Kafka       KafkaConfig                      `yaml:"kafka"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	TradeDB     *postgres_wrapper.PostgresConfig `yaml:"trade_db"`
	Risk        RiskConfig                       `yaml:"risk"`
	Logging     logging.Config                   `yaml:"logging"`
}

type InstrumentConfig struct {
	Ticker     string `yaml:"ticker"`
	QuoteAsset string `yaml:"quote_asset"`
}

// AccountConfig seeds one ledger account. Balances are decimal strings.
type AccountConfig struct {
	ID       string            `yaml:"id"`
	Balances map[string]string `yaml:"balances"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type FixConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SettingsFile string `yaml:"settings_file"`
	ShardCount   int    `yaml:"shard_count"`
	ShardSize    int    `yaml:"shard_size"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// RiskConfig bounds accepted prices. Empty values disable the rule.
type RiskConfig struct {
	PriceFloor string `yaml:"price_floor"`
	PriceCeil  string `yaml:"price_ceil"`
	TickSize   string `yaml:"tick_size"`
}

// Default mirrors the service's built-in setup: one GOOGLE/USD book and two
// funded users.
func Default() *AppConfig {
	return &AppConfig{
		ServiceName: "matching-engine",
		Instrument:  InstrumentConfig{Ticker: "GOOGLE", QuoteAsset: "USD"},
		Accounts: []AccountConfig{
			{ID: "1", Balances: map[string]string{"GOOGLE": "10", "USD": "50000"}},
			{ID: "2", Balances: map[string]string{"GOOGLE": "10", "USD": "50000"}},
		},
		HTTP:    HTTPConfig{Addr: ":3000", CORSOrigins: []string{"*"}},
		Fix:     FixConfig{ShardCount: 8, ShardSize: 1024},
		Logging: logging.Config{Level: "info"},
	}
}

// Load load config from file and environment variables.
// A .env file next to the process is applied first when present.
func Load(filePath string) (*AppConfig, error) {
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	cfg := Default()
	if len(filePath) == 0 {
		sugar.Debug("No config file, using defaults")
		return cfg, nil
	}

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		sugar.Error("Invalid config")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

// Validate checks every decimal in the file parses, so a typo fails at
// startup instead of seeding a zero balance.
func (c *AppConfig) Validate() error {
	if c.Instrument.Ticker == "" || c.Instrument.QuoteAsset == "" {
		return fmt.Errorf("instrument ticker and quote_asset are required")
	}
	for _, acc := range c.Accounts {
		if acc.ID == "" {
			return fmt.Errorf("account with empty id")
		}
		for asset, amount := range acc.Balances {
			if _, err := decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("account %s balance %s: %w", acc.ID, asset, err)
			}
		}
	}
	for name, v := range map[string]string{
		"price_floor": c.Risk.PriceFloor,
		"price_ceil":  c.Risk.PriceCeil,
		"tick_size":   c.Risk.TickSize,
	} {
		if v == "" {
			continue
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("risk %s: %w", name, err)
		}
	}
	return nil
}

// Decimal parses s, treating the empty string as zero. Callers run it on
// values that already passed Validate.
func Decimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
