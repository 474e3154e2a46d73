package domain

import (
	"strings"
	"time"
)

// PollOption is one answer on a poll with its ledger-derived percentage.
// Percentages are display data; chain-backed polls overwrite them from
// snapshot prices on refresh.
type PollOption struct {
	Text       string  `json:"text"`
	Percentage float64 `json:"percentage"`
}

// Poll is a ledger question, optionally bound to an on-chain market.
type Poll struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	SubCategory string       `json:"subCategory,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Options     []PollOption `json:"options"`

	// MarketID binds the poll to the on-chain market; nil for polls that
	// live only in the ledger.
	MarketID *int64 `json:"marketId,omitempty"`

	EndDate    time.Time `json:"endDate"`
	IsResolved bool      `json:"isResolved"`

	// WinningOption is authoritative once resolved. It is never inferred
	// from the contract outcome string.
	WinningOption *int `json:"winningOption,omitempty"`

	TotalVolume float64   `json:"totalVolume"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks a poll before it is written to the ledger.
func (p Poll) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return Validationf("title", "must not be empty")
	}
	if len(p.Options) < 2 {
		return Validationf("options", "need at least two options, got %d", len(p.Options))
	}
	for i, opt := range p.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return Validationf("options", "option %d has empty text", i)
		}
	}
	if p.EndDate.IsZero() {
		return Validationf("endDate", "must be set")
	}
	return nil
}

// OnChain reports whether the poll is bound to a contract market.
func (p Poll) OnChain() bool { return p.MarketID != nil }

// Binary reports whether the poll maps cleanly onto the yes/no contract.
func (p Poll) Binary() bool { return len(p.Options) == 2 }
