package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Scale is the number of micro-units per whole token. All chain-facing
// amounts are integers in micro-units; the ledger stores whole-token
// decimals for display.
const Scale = 1_000_000

var scaleDec = decimal.NewFromInt(Scale)

// ToMicro converts a whole-token decimal amount to micro-unit integers,
// truncating sub-micro precision.
func ToMicro(amount decimal.Decimal) *big.Int {
	return amount.Mul(scaleDec).Truncate(0).BigInt()
}

// FromMicro converts micro-unit integers back to a whole-token decimal.
func FromMicro(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, 0).Div(scaleDec)
}

// MicroToFloat is a display-only conversion for API payloads. Never use
// the result for further money math.
func MicroToFloat(units *big.Int) float64 {
	f, _ := FromMicro(units).Float64()
	return f
}
