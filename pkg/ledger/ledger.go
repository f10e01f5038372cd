package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID       string
	Balances map[string]decimal.Decimal
}

// Ledger owns the balances of every account for the base instrument and the
// quote currency. Accounts only come from the seed set given to New.
// Balances are allowed to go negative.
type Ledger struct {
	mu       sync.RWMutex
	base     string
	quote    string
	accounts map[string]*Account
}

func New(base, quote string, seed []Account) *Ledger {
	l := &Ledger{
		base:     base,
		quote:    quote,
		accounts: make(map[string]*Account, len(seed)),
	}
	for _, acc := range seed {
		balances := map[string]decimal.Decimal{
			base:  decimal.Zero,
			quote: decimal.Zero,
		}
		for asset, amount := range acc.Balances {
			balances[asset] = amount
		}
		l.accounts[acc.ID] = &Account{ID: acc.ID, Balances: balances}
	}
	return l
}

func (l *Ledger) BaseAsset() string  { return l.base }
func (l *Ledger) QuoteAsset() string { return l.quote }

func (l *Ledger) Has(accountID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.accounts[accountID]
	return ok
}

// Transfer settles one fill: qty of the base asset moves from seller to buyer
// and qty*price of the quote currency moves from buyer to seller. Nothing is
// moved unless both accounts exist.
func (l *Ledger) Transfer(sellerID, buyerID string, qty, price decimal.Decimal) error {
	if !qty.IsPositive() || !price.IsPositive() {
		return fmt.Errorf("%w: qty=%s price=%s", ErrInvalidAmount, qty, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seller, ok := l.accounts[sellerID]
	if !ok {
		return fmt.Errorf("%w: seller %q", ErrUnknownAccount, sellerID)
	}
	buyer, ok := l.accounts[buyerID]
	if !ok {
		return fmt.Errorf("%w: buyer %q", ErrUnknownAccount, buyerID)
	}

	notional := qty.Mul(price)
	seller.Balances[l.base] = seller.Balances[l.base].Sub(qty)
	buyer.Balances[l.base] = buyer.Balances[l.base].Add(qty)
	seller.Balances[l.quote] = seller.Balances[l.quote].Add(notional)
	buyer.Balances[l.quote] = buyer.Balances[l.quote].Sub(notional)
	return nil
}

// Balances returns a copy of the account's balances. An unknown account
// reads as zero for both known assets.
func (l *Ledger) Balances(accountID string) map[string]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[accountID]
	if !ok {
		return map[string]decimal.Decimal{
			l.base:  decimal.Zero,
			l.quote: decimal.Zero,
		}
	}

	out := make(map[string]decimal.Decimal, len(acc.Balances))
	for asset, amount := range acc.Balances {
		out[asset] = amount
	}
	return out
}

// Totals sums each asset over all accounts.
func (l *Ledger) Totals() map[string]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := map[string]decimal.Decimal{
		l.base:  decimal.Zero,
		l.quote: decimal.Zero,
	}
	for _, acc := range l.accounts {
		for asset, amount := range acc.Balances {
			out[asset] = out[asset].Add(amount)
		}
	}
	return out
}

func (l *Ledger) AccountIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	return ids
}
