// Package workflow orchestrates the trade and redemption paths: validate,
// quote, submit through the wallet, wait for chain confirmation, then
// write the ledger. The ordering invariant is absolute: no ledger row
// exists without a confirmed transaction behind it.
package workflow

import (
	"github.com/shopspring/decimal"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/pricing"
)

// Quoter derives advisory cost estimates from chain snapshots. A quote
// is a courtesy for the user and the cap calculation; the contract's own
// math decides the real fill.
type Quoter struct {
	pricer *pricing.Reconciler
}

// NewQuoter creates a Quoter.
func NewQuoter(pricer *pricing.Reconciler) *Quoter {
	return &Quoter{pricer: pricer}
}

// QuoteTrade estimates the cost of a trade request against the given
// snapshot. The returned price is the per-share estimate used for the
// ledger row when the request carries none.
func (q *Quoter) QuoteTrade(snap domain.MarketSnapshot, poll domain.Poll, req domain.TradeRequest) (domain.Quote, float64) {
	price := q.pricer.OptionPrice(snap, poll, req.OptionIndex)
	quote := domain.NewQuote(decimal.NewFromFloat(req.Amount))
	return quote, price
}
