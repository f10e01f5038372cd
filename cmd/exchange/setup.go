package main

import (
	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/riskrule"
	"github.com/shopspring/decimal"
)

func seedAccounts(cfg *config.AppConfig) []ledger.Account {
	accounts := make([]ledger.Account, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		balances := make(map[string]decimal.Decimal, len(acc.Balances))
		for asset, amount := range acc.Balances {
			balances[asset] = config.Decimal(amount)
		}
		accounts = append(accounts, ledger.Account{ID: acc.ID, Balances: balances})
	}
	return accounts
}

func riskRules(cfg *config.AppConfig) []riskrule.RiskRule {
	rules := []riskrule.RiskRule{riskrule.WellFormedRule{}}
	floor := config.Decimal(cfg.Risk.PriceFloor)
	ceil := config.Decimal(cfg.Risk.PriceCeil)
	if !floor.IsZero() || !ceil.IsZero() {
		rules = append(rules, &riskrule.LimitPriceRule{Floor: floor, Ceil: ceil})
	}
	if tick := config.Decimal(cfg.Risk.TickSize); tick.IsPositive() {
		rules = append(rules, &riskrule.TickSizeRule{Step: tick})
	}
	return rules
}
