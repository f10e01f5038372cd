package main

import (
	"testing"

	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/joripage/matching-engine/pkg/riskrule"
	"github.com/shopspring/decimal"
)

func TestSeedAccountsFromDefaults(t *testing.T) {
	accounts := seedAccounts(config.Default())
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	for _, acc := range accounts {
		if !acc.Balances["GOOGLE"].Equal(decimal.NewFromInt(10)) || !acc.Balances["USD"].Equal(decimal.NewFromInt(50000)) {
			t.Errorf("account %s: %v", acc.ID, acc.Balances)
		}
	}
}

func TestRiskRulesFromConfig(t *testing.T) {
	cfg := config.Default()
	if got := len(riskRules(cfg)); got != 1 {
		t.Fatalf("expected only the well-formed rule, got %d", got)
	}

	cfg.Risk = config.RiskConfig{PriceCeil: "500", TickSize: "0.5"}
	rules := riskRules(cfg)
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}

	o := &riskrule.Order{Side: orderbook.Bid, Price: decimal.RequireFromString("100.25"), Quantity: decimal.NewFromInt(1), AccountID: "1"}
	if err := riskrule.Check(o, rules...); err == nil {
		t.Error("expected off-tick price to be rejected")
	}
	o.Price = decimal.RequireFromString("100.5")
	if err := riskrule.Check(o, rules...); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}
