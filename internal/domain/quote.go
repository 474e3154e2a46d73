package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Fee rates applied by the quoter, mirroring the contract's fee split.
var (
	ProtocolFeeRate  = decimal.NewFromFloat(0.01)
	LiquidityFeeRate = decimal.NewFromFloat(0.02)
)

// Cap multipliers for auto-capped limit orders. The target cap leaves
// generous headroom; the max cost bounds slippage at 10% over quote.
var (
	targetCapFactor = decimal.NewFromInt(10)
	maxCostFactor   = decimal.NewFromFloat(1.10)
)

// Quote is an advisory cost estimate for a prospective trade. It is
// computed from a snapshot and may be stale by execution time; the
// contract's own math is authoritative.
type Quote struct {
	Cost         decimal.Decimal `json:"cost"`
	ProtocolFee  decimal.Decimal `json:"protocolFee"`
	LiquidityFee decimal.Decimal `json:"liquidityFee"`
	Total        decimal.Decimal `json:"total"`
}

// NewQuote derives the fee breakdown from a base cost in whole tokens.
func NewQuote(cost decimal.Decimal) Quote {
	protocol := cost.Mul(ProtocolFeeRate)
	liquidity := cost.Mul(LiquidityFeeRate)
	return Quote{
		Cost:         cost,
		ProtocolFee:  protocol,
		LiquidityFee: liquidity,
		Total:        cost.Add(protocol).Add(liquidity),
	}
}

// TargetCap is the auto-capped order's upper fill bound in micro-units:
// ten times the quoted total.
func (q Quote) TargetCap() *big.Int {
	return ToMicro(q.Total.Mul(targetCapFactor))
}

// MaxCost is the auto-capped order's spend ceiling in micro-units: 110%
// of the quoted total.
func (q Quote) MaxCost() *big.Int {
	return ToMicro(q.Total.Mul(maxCostFactor))
}
