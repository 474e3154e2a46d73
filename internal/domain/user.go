package domain

import (
	"strings"
	"time"
)

// User is a ledger account. Wallet-login accounts carry a principal and
// no password hash; password accounts may attach a wallet later.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	PasswordHash  string    `json:"-"`
	IsAdmin       bool      `json:"isAdmin"`
	Balance       float64   `json:"balance"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasWallet reports whether the account can sign chain transactions.
func (u User) HasWallet() bool { return u.WalletAddress != "" }

// Comment is a user remark on a poll.
type Comment struct {
	ID        string    `json:"id"`
	PollID    string    `json:"pollId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks a comment before insert.
func (c Comment) Validate() error {
	if c.PollID == "" {
		return Validationf("pollId", "must not be empty")
	}
	if c.UserID == "" {
		return Validationf("userId", "must not be empty")
	}
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return Validationf("body", "must not be empty")
	}
	if len(body) > 2000 {
		return Validationf("body", "too long: %d characters", len(body))
	}
	return nil
}
