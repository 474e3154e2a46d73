// Package pricing derives display prices and chart series from chain
// snapshots and the trade ledger. The contract's own pricing formula is
// authoritative for execution; everything here is presentation math.
package pricing

import (
	"log/slog"
	"math/big"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// Reconciler combines chain snapshots with ledger data into display
// prices.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger.With(slog.String("component", "pricing"))}
}

// Price returns the scalar price in [0,1] for one side of a binary
// market. An empty pool or zero total supply yields exactly 0.5.
func (r *Reconciler) Price(snap domain.MarketSnapshot, option domain.OptionSide) float64 {
	if snap.Empty() {
		return 0.5
	}
	yes := snap.YesSupply
	no := snap.NoSupply
	if yes == nil || no == nil {
		return 0.5
	}
	total := new(big.Int).Add(yes, no)
	if total.Sign() == 0 {
		return 0.5
	}

	side := yes
	if option == domain.SideNo {
		side = no
	}
	num := new(big.Float).SetInt(side)
	den := new(big.Float).SetInt(total)
	p, _ := new(big.Float).Quo(num, den).Float64()
	return clamp01(p)
}

// OptionPrice returns the display price for one option index, falling
// back to the ledger's stored percentage when the snapshot is degraded
// or the poll is not a binary chain market.
func (r *Reconciler) OptionPrice(snap domain.MarketSnapshot, poll domain.Poll, optionIndex int) float64 {
	if poll.OnChain() && poll.Binary() && !snap.Degraded {
		return r.Price(snap, domain.SideForOption(optionIndex))
	}
	if optionIndex >= 0 && optionIndex < len(poll.Options) {
		return clamp01(poll.Options[optionIndex].Percentage / 100)
	}
	return 0.5
}

// OptionPercentages renders every option's display percentage for a
// poll, summing to 100 for binary chain markets.
func (r *Reconciler) OptionPercentages(snap domain.MarketSnapshot, poll domain.Poll) []float64 {
	out := make([]float64, len(poll.Options))
	for i := range poll.Options {
		out[i] = r.OptionPrice(snap, poll, i) * 100
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
