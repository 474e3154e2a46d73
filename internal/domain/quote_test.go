package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuoteFeeBreakdown(t *testing.T) {
	q := NewQuote(decimal.NewFromInt(100))

	assert.True(t, q.ProtocolFee.Equal(decimal.NewFromInt(1)), "protocol fee is 1%%")
	assert.True(t, q.LiquidityFee.Equal(decimal.NewFromInt(2)), "liquidity fee is 2%%")
	assert.True(t, q.Total.Equal(decimal.NewFromInt(103)))
}

func TestQuoteCapsInMicroUnits(t *testing.T) {
	q := NewQuote(decimal.NewFromInt(10))

	// Total 10.3: cap 10x, ceiling 110%.
	assert.Equal(t, big.NewInt(103_000_000), q.TargetCap())
	assert.Equal(t, big.NewInt(11_330_000), q.MaxCost())
}

func TestToMicroTruncates(t *testing.T) {
	amount := decimal.RequireFromString("1.2345678")
	assert.Equal(t, big.NewInt(1_234_567), ToMicro(amount))
}

func TestFromMicroRoundTrip(t *testing.T) {
	units := big.NewInt(2_500_000)
	got := FromMicro(units)
	require.True(t, got.Equal(decimal.RequireFromString("2.5")))

	assert.True(t, FromMicro(nil).IsZero())
	assert.InDelta(t, 2.5, MicroToFloat(units), 1e-9)
}
