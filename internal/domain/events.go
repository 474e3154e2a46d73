package domain

import (
	"encoding/json"
	"fmt"
)

// Event types carried on poll channels. Names are part of the client
// protocol and must not change.
const (
	EventTradeCreated = "trade-created"
	EventPollUpdated  = "poll-updated"
	EventPollResolved = "poll-resolved"
)

// PollChannel is the bus channel for one poll's room.
func PollChannel(pollID string) string {
	return fmt.Sprintf("poll:%s", pollID)
}

// WalletChannel is the bus channel carrying signing requests for one
// principal's connected wallet.
func WalletChannel(principal string) string {
	return fmt.Sprintf("wallet:%s", principal)
}

// Event is the envelope published on the bus and forwarded verbatim to
// room subscribers.
type Event struct {
	Type    string          `json:"type"`
	PollID  string          `json:"pollId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an envelope. A nil payload is legal for
// trade-created and tells subscribers to refetch.
func NewEvent(eventType, pollID string, payload any) (Event, error) {
	ev := Event{Type: eventType, PollID: pollID}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("domain: marshal %s payload: %w", eventType, err)
	}
	ev.Payload = raw
	return ev, nil
}

// TradeCreatedPayload accompanies trade-created. Trade may be nil when
// the payload would be oversized; subscribers then refetch the history.
type TradeCreatedPayload struct {
	Trade     *Trade     `json:"trade,omitempty"`
	OrderBook *OrderBook `json:"orderBook,omitempty"`
}

// PollUpdatedPayload accompanies poll-updated after a price refresh or
// an edit.
type PollUpdatedPayload struct {
	Poll Poll `json:"poll"`
}

// PollResolvedPayload accompanies the one-time poll-resolved event.
type PollResolvedPayload struct {
	WinningOption int    `json:"winningOption"`
	WinningText   string `json:"winningText,omitempty"`
}
