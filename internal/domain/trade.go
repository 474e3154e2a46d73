package domain

import (
	"time"
)

// TradeSide is the direction of a trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// OrderType selects between an immediate market fill and an auto-capped
// limit fill.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Trade is one confirmed ledger row. A Trade exists only after its
// transaction reached terminal success on chain; TxID is the proof.
type Trade struct {
	ID          string    `json:"id"`
	PollID      string    `json:"pollId"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username,omitempty"`
	Side        TradeSide `json:"side"`
	OptionIndex int       `json:"optionIndex"`
	OptionText  string    `json:"optionText,omitempty"`
	Amount      float64   `json:"amount"`
	Price       float64   `json:"price"`
	OrderType   OrderType `json:"orderType"`
	TxID        string    `json:"txId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TradeRequest is the validated input to the trade workflow.
type TradeRequest struct {
	PollID      string    `json:"pollId"`
	Side        TradeSide `json:"side"`
	OptionIndex int       `json:"optionIndex"`
	Amount      float64   `json:"amount"`
	Price       float64   `json:"price"`
	OrderType   OrderType `json:"orderType"`
}

// Validate rejects malformed requests before any chain interaction.
func (r TradeRequest) Validate() error {
	if r.PollID == "" {
		return Validationf("pollId", "must not be empty")
	}
	switch r.Side {
	case TradeBuy, TradeSell:
	default:
		return Validationf("side", "must be buy or sell, got %q", r.Side)
	}
	if r.OptionIndex < 0 {
		return Validationf("optionIndex", "must not be negative")
	}
	if r.Amount <= 0 {
		return Validationf("amount", "must be positive, got %v", r.Amount)
	}
	if r.Price < 0 || r.Price > 1 {
		return Validationf("price", "must be within [0,1], got %v", r.Price)
	}
	switch r.OrderType {
	case OrderMarket, OrderLimit:
	case "":
		return Validationf("orderType", "must be set")
	default:
		return Validationf("orderType", "must be market or limit, got %q", r.OrderType)
	}
	return nil
}

// RewardClaim records a confirmed redemption for a resolved poll.
type RewardClaim struct {
	PollID    string    `json:"pollId"`
	UserID    string    `json:"userId"`
	TxID      string    `json:"txId"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// BookLevel is one aggregated price level in the display order book.
type BookLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// OrderBook is display data aggregated from recent ledger trades. There
// is no matching engine behind it.
type OrderBook struct {
	Buys  []BookLevel `json:"buys"`
	Sells []BookLevel `json:"sells"`
}
