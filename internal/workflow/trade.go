package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// Notifier delivers operator alerts. Satisfied by notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Notification event names.
const (
	EventLedgerWriteFailed = "ledger_write_failed"
	EventPollResolvedAlert = "poll_resolved"
	EventError             = "error"
)

// TradeOptions tunes the trade workflow.
type TradeOptions struct {
	// MaxPerMinute bounds trades per user. Zero disables the limit.
	MaxPerMinute int
}

// TradeWorkflow executes one trade end to end. Every step before the
// wallet submission is reversible; everything after confirmation must
// reach the ledger or be escalated as a reconciliation problem.
type TradeWorkflow struct {
	polls   domain.PollStore
	trades  domain.TradeStore
	reader  domain.MarketReader
	writer  domain.MarketWriter
	watcher domain.TxWatcher
	cache   domain.SnapshotCache
	bus     domain.SignalBus
	limiter domain.RateLimiter
	audit   domain.AuditStore
	notif   Notifier
	quoter  *Quoter
	opts    TradeOptions
	logger  *slog.Logger
}

// NewTradeWorkflow wires the trade path.
func NewTradeWorkflow(
	polls domain.PollStore,
	trades domain.TradeStore,
	reader domain.MarketReader,
	writer domain.MarketWriter,
	watcher domain.TxWatcher,
	cache domain.SnapshotCache,
	bus domain.SignalBus,
	limiter domain.RateLimiter,
	audit domain.AuditStore,
	notif Notifier,
	quoter *Quoter,
	opts TradeOptions,
	logger *slog.Logger,
) *TradeWorkflow {
	return &TradeWorkflow{
		polls:   polls,
		trades:  trades,
		reader:  reader,
		writer:  writer,
		watcher: watcher,
		cache:   cache,
		bus:     bus,
		limiter: limiter,
		audit:   audit,
		notif:   notif,
		quoter:  quoter,
		opts:    opts,
		logger:  logger.With(slog.String("component", "trade_workflow")),
	}
}

// Execute runs one trade. On success the returned Trade is the ledger
// row, TxID included. Callers branch on the error taxonomy: validation
// and wallet errors mean nothing happened on chain; ChainCallError means
// the chain rejected it; LedgerWriteError means the chain accepted it
// and the ledger did not.
func (w *TradeWorkflow) Execute(ctx context.Context, user domain.User, req domain.TradeRequest) (domain.Trade, error) {
	if err := req.Validate(); err != nil {
		return domain.Trade{}, err
	}
	if !user.HasWallet() {
		return domain.Trade{}, domain.ErrWalletNotConnected
	}

	poll, err := w.polls.GetByID(ctx, req.PollID)
	if err != nil {
		return domain.Trade{}, err
	}
	if poll.IsResolved {
		return domain.Trade{}, domain.ErrPollResolved
	}
	if !poll.OnChain() {
		return domain.Trade{}, domain.Validationf("pollId", "poll %s has no market attached", poll.ID)
	}
	// The contract only knows yes and no; option indexes beyond 1 have
	// no side to map onto.
	if !poll.Binary() {
		return domain.Trade{}, domain.Validationf("pollId", "on-chain trading requires a binary poll, got %d options", len(poll.Options))
	}
	if req.OptionIndex >= len(poll.Options) {
		return domain.Trade{}, domain.Validationf("optionIndex", "poll has %d options, got index %d", len(poll.Options), req.OptionIndex)
	}
	marketID := *poll.MarketID

	if w.opts.MaxPerMinute > 0 {
		allowed, err := w.limiter.Allow(ctx, "trade:"+user.ID, w.opts.MaxPerMinute, time.Minute)
		if err != nil {
			w.logger.Warn("rate limiter unavailable, allowing trade",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()))
		} else if !allowed {
			return domain.Trade{}, domain.ErrRateLimited
		}
	}

	if open, err := w.reader.Open(ctx, marketID); err != nil {
		w.logger.Warn("market status read failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()))
	} else if !open {
		return domain.Trade{}, domain.Validationf("pollId", "market is paused")
	}

	// The quote is advisory. A snapshot failure degrades the quote; it
	// never blocks the trade.
	snap, err := w.reader.Snapshot(ctx, marketID, user.WalletAddress)
	if err != nil {
		w.logger.Warn("snapshot failed, quoting against empty market",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()))
		snap = domain.MarketSnapshot{MarketID: marketID, Degraded: true}
	}
	quote, estPrice := w.quoter.QuoteTrade(snap, poll, req)

	amount := domain.ToMicro(decimal.NewFromFloat(req.Amount))
	if amount.Sign() <= 0 {
		return domain.Trade{}, domain.Validationf("amount", "below the minimum unit")
	}

	side := domain.SideForOption(req.OptionIndex)
	txID, err := w.submit(ctx, user.WalletAddress, marketID, side, req, amount, quote)
	if err != nil {
		return domain.Trade{}, err
	}

	record, err := w.watcher.WaitForConfirmation(ctx, txID)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("workflow: confirm trade %s: %w", txID, err)
	}
	if record.Status != domain.TxSuccess {
		return domain.Trade{}, &domain.ChainCallError{TxID: txID, Status: record.Status, Result: record.Result}
	}

	price := req.Price
	if req.OrderType == domain.OrderMarket || price == 0 {
		price = estPrice
	}
	trade := domain.Trade{
		ID:          uuid.NewString(),
		PollID:      poll.ID,
		UserID:      user.ID,
		Username:    user.Username,
		Side:        req.Side,
		OptionIndex: req.OptionIndex,
		OptionText:  poll.Options[req.OptionIndex].Text,
		Amount:      req.Amount,
		Price:       price,
		OrderType:   req.OrderType,
		TxID:        txID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := w.trades.Insert(ctx, trade); err != nil {
		w.escalateLedgerFailure(ctx, "trade", user.ID, poll.ID, txID, err)
		return domain.Trade{}, &domain.LedgerWriteError{TxID: txID, Err: err}
	}

	w.logger.Info("trade confirmed",
		slog.String("trade_id", trade.ID),
		slog.String("poll_id", poll.ID),
		slog.String("tx_id", txID),
		slog.String("side", string(req.Side)),
		slog.Float64("amount", req.Amount))

	w.afterLedgerWrite(ctx, poll, trade)
	return trade, nil
}

// submit routes the request to the matching contract function. Market
// orders fill immediately; limit orders use the auto-capped variant
// bounded by the quote.
func (w *TradeWorkflow) submit(ctx context.Context, principal string, marketID int64, side domain.OptionSide, req domain.TradeRequest, amount *big.Int, quote domain.Quote) (string, error) {
	switch {
	case req.OrderType == domain.OrderMarket && req.Side == domain.TradeBuy:
		return w.writer.BuyShares(ctx, principal, marketID, side, amount)
	case req.OrderType == domain.OrderMarket:
		return w.writer.SellShares(ctx, principal, marketID, side, amount)
	case req.Side == domain.TradeBuy:
		return w.writer.BuySharesCapped(ctx, principal, marketID, side, amount, quote.TargetCap(), quote.MaxCost())
	default:
		return w.writer.SellSharesCapped(ctx, principal, marketID, side, amount, quote.TargetCap(), quote.MaxCost())
	}
}

// afterLedgerWrite runs the best-effort follow-ups. Failures here are
// logged, never surfaced; the trade already succeeded.
func (w *TradeWorkflow) afterLedgerWrite(ctx context.Context, poll domain.Poll, trade domain.Trade) {
	if err := w.polls.AddVolume(ctx, poll.ID, trade.Amount); err != nil {
		w.logger.Warn("volume update failed",
			slog.String("poll_id", poll.ID),
			slog.String("error", err.Error()))
	}
	if err := w.cache.Invalidate(ctx, *poll.MarketID); err != nil {
		w.logger.Warn("snapshot invalidation failed",
			slog.Int64("market_id", *poll.MarketID),
			slog.String("error", err.Error()))
	}

	ev, err := domain.NewEvent(domain.EventTradeCreated, poll.ID, domain.TradeCreatedPayload{Trade: &trade})
	if err != nil {
		w.logger.Warn("event marshal failed", slog.String("error", err.Error()))
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		w.logger.Warn("event marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := w.bus.Publish(ctx, domain.PollChannel(poll.ID), payload); err != nil {
		w.logger.Warn("trade event publish failed",
			slog.String("poll_id", poll.ID),
			slog.String("error", err.Error()))
	}
}

// escalateLedgerFailure records and alerts on a confirmed transaction
// the ledger failed to absorb.
func (w *TradeWorkflow) escalateLedgerFailure(ctx context.Context, kind, userID, pollID, txID string, cause error) {
	w.logger.Error("ledger write failed for confirmed tx",
		slog.String("kind", kind),
		slog.String("poll_id", pollID),
		slog.String("tx_id", txID),
		slog.String("error", cause.Error()))

	entry := domain.AuditEntry{
		Kind:   EventLedgerWriteFailed,
		Actor:  userID,
		PollID: pollID,
		TxID:   txID,
		Detail: map[string]any{"operation": kind, "error": cause.Error()},
	}
	if err := w.audit.Record(ctx, entry); err != nil {
		w.logger.Error("audit record failed", slog.String("error", err.Error()))
	}
	if w.notif != nil {
		msg := fmt.Sprintf("tx %s confirmed on chain but %s ledger write failed: %v", txID, kind, cause)
		if err := w.notif.Notify(ctx, EventLedgerWriteFailed, "Ledger write failed", msg); err != nil {
			w.logger.Error("notify failed", slog.String("error", err.Error()))
		}
	}
}
