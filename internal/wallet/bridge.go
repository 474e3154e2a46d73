// Package wallet relays contract calls to the user's browser wallet over
// the live update channel. The server never holds private keys; it
// publishes a signing request on the principal's wallet channel, the
// connected client signs through its wallet extension, and the reply
// carries the transaction ID back.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/platform/stacks"
)

// Reply statuses reported by the client after the wallet prompt closes.
const (
	replySubmitted = "submitted"
	replyCancelled = "cancelled"
	replyFailed    = "failed"
)

// signRequest is published on WalletChannel(principal). Argument values
// are hex-encoded Clarity values the wallet passes through unchanged.
type signRequest struct {
	RequestID       string   `json:"requestId"`
	ContractAddress string   `json:"contractAddress"`
	ContractName    string   `json:"contractName"`
	FunctionName    string   `json:"functionName"`
	FunctionArgs    []string `json:"functionArgs"`
}

// signReply is published on ReplyChannel(requestID) by the hub when the
// client reports the prompt outcome.
type signReply struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	TxID      string `json:"txId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ReplyChannel is the bus channel carrying one signing request's outcome.
func ReplyChannel(requestID string) string {
	return fmt.Sprintf("wallet-reply:%s", requestID)
}

// Bridge implements domain.Wallet on top of the signal bus. Connected
// reflects wallets attached to this instance's hub; the hub calls Attach
// and Detach as clients identify and disconnect.
type Bridge struct {
	bus     domain.SignalBus
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	attached map[string]int
}

// NewBridge creates a wallet bridge. timeout bounds how long a signing
// prompt may stay open before the call is abandoned.
func NewBridge(bus domain.SignalBus, timeout time.Duration, logger *slog.Logger) *Bridge {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Bridge{
		bus:      bus,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "wallet_bridge")),
		attached: make(map[string]int),
	}
}

// Attach records a live wallet session for the principal. Multiple tabs
// count separately.
func (b *Bridge) Attach(principal string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attached[principal]++
}

// Detach removes one wallet session for the principal.
func (b *Bridge) Detach(principal string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.attached[principal]; n <= 1 {
		delete(b.attached, principal)
	} else {
		b.attached[principal] = n - 1
	}
}

// Connected reports whether the principal has at least one wallet session.
func (b *Bridge) Connected(_ context.Context, principal string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.attached[principal] > 0
}

// HandleReply forwards a client's prompt outcome onto the reply channel.
// The hub calls this when a wallet-reply frame arrives.
func (b *Bridge) HandleReply(ctx context.Context, raw []byte) error {
	var reply signReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("wallet: decode reply: %w", err)
	}
	if reply.RequestID == "" {
		return fmt.Errorf("wallet: reply missing request id")
	}
	if err := b.bus.Publish(ctx, ReplyChannel(reply.RequestID), raw); err != nil {
		return fmt.Errorf("wallet: publish reply %s: %w", reply.RequestID, err)
	}
	return nil
}

// SignAndSubmit publishes the call to the principal's wallet and blocks
// until the prompt outcome arrives or the timeout elapses.
func (b *Bridge) SignAndSubmit(ctx context.Context, principal string, call domain.ContractCall) (string, error) {
	if !b.Connected(ctx, principal) {
		return "", domain.ErrWalletNotConnected
	}

	args, err := stacks.EncodeArgs(call.Args)
	if err != nil {
		return "", fmt.Errorf("wallet: encode %s args: %w", call.Function, err)
	}
	req := signRequest{
		RequestID:       uuid.NewString(),
		ContractAddress: call.ContractAddress,
		ContractName:    call.ContractName,
		FunctionName:    call.Function,
		FunctionArgs:    args,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("wallet: marshal sign request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Subscribe before publishing so the reply cannot slip past.
	replies := make(chan signReply, 1)
	stop, err := b.bus.Subscribe(ctx, ReplyChannel(req.RequestID), func(raw []byte) {
		var reply signReply
		if err := json.Unmarshal(raw, &reply); err != nil {
			b.logger.Warn("malformed wallet reply",
				slog.String("request_id", req.RequestID),
				slog.String("error", err.Error()))
			return
		}
		select {
		case replies <- reply:
		default:
		}
	})
	if err != nil {
		return "", fmt.Errorf("wallet: subscribe reply channel: %w", err)
	}
	defer stop()

	if err := b.bus.Publish(ctx, domain.WalletChannel(principal), payload); err != nil {
		return "", fmt.Errorf("wallet: publish sign request: %w", err)
	}
	b.logger.Info("sign request sent",
		slog.String("request_id", req.RequestID),
		slog.String("principal", principal),
		slog.String("function", call.Function))

	select {
	case reply := <-replies:
		switch reply.Status {
		case replySubmitted:
			if reply.TxID == "" {
				return "", domain.ErrNoTxID
			}
			return reply.TxID, nil
		case replyCancelled:
			return "", domain.ErrUserCancelled
		case replyFailed:
			return "", fmt.Errorf("wallet: signing failed: %s", reply.Reason)
		default:
			return "", fmt.Errorf("wallet: unknown reply status %q", reply.Status)
		}
	case <-ctx.Done():
		b.logger.Warn("sign request timed out",
			slog.String("request_id", req.RequestID),
			slog.String("principal", principal))
		return "", domain.ErrPromptTimeout
	}
}

// Compile-time interface check.
var _ domain.Wallet = (*Bridge)(nil)
