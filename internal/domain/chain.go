package domain

import (
	"context"
	"math/big"
	"time"
)

// TxStatus is the lifecycle status of an on-chain transaction as reported
// by the node API.
type TxStatus string

const (
	TxPending             TxStatus = "pending"
	TxSuccess             TxStatus = "success"
	TxAbortByResponse     TxStatus = "abort_by_response"
	TxAbortByPostCondition TxStatus = "abort_by_post_condition"
	TxFailed              TxStatus = "failed"
)

// Terminal reports whether the status will never change again.
func (s TxStatus) Terminal() bool {
	switch s {
	case TxSuccess, TxAbortByResponse, TxAbortByPostCondition, TxFailed:
		return true
	}
	return false
}

// TxRecord is the observed state of a submitted transaction.
type TxRecord struct {
	TxID        string    `json:"txId"`
	Status      TxStatus  `json:"status"`
	Result      string    `json:"result,omitempty"`
	BlockHeight int64     `json:"blockHeight,omitempty"`
	SeenAt      time.Time `json:"seenAt"`
}

// ChainArgKind discriminates ContractCall argument encodings.
type ChainArgKind int

const (
	ArgUint ChainArgKind = iota
	ArgPrincipal
	ArgASCII
)

// ChainArg is a single Clarity-typed argument to a contract function.
type ChainArg struct {
	Kind ChainArgKind
	Uint *big.Int
	Str  string
}

// UintArg wraps a micro-unit integer argument.
func UintArg(v *big.Int) ChainArg { return ChainArg{Kind: ArgUint, Uint: v} }

// PrincipalArg wraps a standard principal argument.
func PrincipalArg(addr string) ChainArg { return ChainArg{Kind: ArgPrincipal, Str: addr} }

// ASCIIArg wraps a string-ascii argument.
func ASCIIArg(s string) ChainArg { return ChainArg{Kind: ArgASCII, Str: s} }

// ContractCall describes one public contract function invocation to be
// signed by a wallet.
type ContractCall struct {
	ContractAddress string
	ContractName    string
	Function        string
	Args            []ChainArg
}

// MarketReader reads market state from the deployed contract. All amounts
// are micro-unit integers. Implementations must never guess on read
// failure; they return the error and let callers decide on fallbacks.
type MarketReader interface {
	Pool(ctx context.Context, marketID int64) (*big.Int, error)
	YesSupply(ctx context.Context, marketID int64) (*big.Int, error)
	NoSupply(ctx context.Context, marketID int64) (*big.Int, error)
	Outcome(ctx context.Context, marketID int64) (MarketOutcome, error)
	Open(ctx context.Context, marketID int64) (bool, error)
	LiquidityParam(ctx context.Context, marketID int64) (*big.Int, error)
	YesBalance(ctx context.Context, marketID int64, principal string) (*big.Int, error)
	NoBalance(ctx context.Context, marketID int64, principal string) (*big.Int, error)
	RewardClaimed(ctx context.Context, marketID int64, principal string) (bool, error)

	// Snapshot assembles the full off-chain projection for one market.
	// Per-user fields are zero when principal is empty. Individual read
	// failures degrade the snapshot instead of failing it outright.
	Snapshot(ctx context.Context, marketID int64, principal string) (MarketSnapshot, error)
}

// MarketWriter submits state-changing contract calls through the user's
// wallet and returns the transaction ID. A returned txID is a submission
// receipt only; confirmation is the TxWatcher's job.
type MarketWriter interface {
	BuyShares(ctx context.Context, principal string, marketID int64, option OptionSide, amount *big.Int) (string, error)
	SellShares(ctx context.Context, principal string, marketID int64, option OptionSide, amount *big.Int) (string, error)

	// BuySharesCapped is the auto-capped limit variant: the contract
	// rejects the fill if cost exceeds maxCost before reaching targetCap.
	BuySharesCapped(ctx context.Context, principal string, marketID int64, option OptionSide, amount, targetCap, maxCost *big.Int) (string, error)
	SellSharesCapped(ctx context.Context, principal string, marketID int64, option OptionSide, amount, targetCap, maxCost *big.Int) (string, error)

	Redeem(ctx context.Context, principal string, marketID int64) (string, error)
	AddLiquidity(ctx context.Context, principal string, marketID int64, amount *big.Int) (string, error)
	CreateMarket(ctx context.Context, principal string, marketID int64, initialLiquidity *big.Int) (string, error)
}

// TxWatcher blocks until a submitted transaction reaches a terminal
// status or the attempt budget runs out.
type TxWatcher interface {
	WaitForConfirmation(ctx context.Context, txID string) (TxRecord, error)
}

// Wallet signs and submits contract calls on behalf of a principal. The
// production implementation relays the call to the user's browser wallet
// over the live channel; tests substitute a fake.
type Wallet interface {
	// Connected reports whether the principal currently has a signing
	// session attached.
	Connected(ctx context.Context, principal string) bool

	// SignAndSubmit forwards the call for signing and returns the
	// transaction ID. Returns ErrUserCancelled when the prompt was
	// dismissed, ErrPromptTimeout when it expired unanswered, and
	// ErrWalletNotConnected when no session exists.
	SignAndSubmit(ctx context.Context, principal string, call ContractCall) (string, error)
}
