package domain

import (
	"math/big"
	"time"
)

// MarketOutcome is the resolved outcome of an on-chain binary market.
type MarketOutcome string

const (
	OutcomeUnresolved MarketOutcome = ""
	OutcomeYes        MarketOutcome = "YES"
	OutcomeNo         MarketOutcome = "NO"
)

// OptionSide maps a poll option index onto the binary contract.
type OptionSide int

const (
	SideYes OptionSide = iota
	SideNo
)

func (s OptionSide) String() string {
	if s == SideYes {
		return "yes"
	}
	return "no"
}

// SideForOption maps a ledger option index to the contract side. Binary
// polls put option 0 on yes and option 1 on no.
func SideForOption(optionIndex int) OptionSide {
	if optionIndex == 0 {
		return SideYes
	}
	return SideNo
}

// MarketSnapshot is the off-chain projection of contract state for one
// market, optionally enriched with per-user balances. All amounts are
// micro-unit integers.
type MarketSnapshot struct {
	MarketID  int64         `json:"marketId"`
	Pool      *big.Int      `json:"pool"`
	YesSupply *big.Int      `json:"yesSupply"`
	NoSupply  *big.Int      `json:"noSupply"`
	Liquidity *big.Int      `json:"liquidity,omitempty"`
	Outcome   MarketOutcome `json:"outcome,omitempty"`

	// Per-user fields; zero values when no principal was supplied.
	Principal     string   `json:"principal,omitempty"`
	YesBalance    *big.Int `json:"yesBalance,omitempty"`
	NoBalance     *big.Int `json:"noBalance,omitempty"`
	RewardClaimed bool     `json:"rewardClaimed,omitempty"`

	// Degraded marks a snapshot where one or more reads failed and the
	// affected fields hold fallbacks rather than chain truth.
	Degraded  bool      `json:"degraded,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Empty reports whether the pool has no funds, which forces the 0.5
// price fallback.
func (s MarketSnapshot) Empty() bool {
	return s.Pool == nil || s.Pool.Sign() == 0
}
