package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// RedemptionWorkflow claims a resolved market's payout. The claim row is
// written only after the redeem transaction confirms, mirroring the trade
// path's ordering invariant.
type RedemptionWorkflow struct {
	polls   domain.PollStore
	trades  domain.TradeStore
	writer  domain.MarketWriter
	watcher domain.TxWatcher
	cache   domain.SnapshotCache
	audit   domain.AuditStore
	notif   Notifier
	logger  *slog.Logger
}

// NewRedemptionWorkflow wires the redemption path.
func NewRedemptionWorkflow(
	polls domain.PollStore,
	trades domain.TradeStore,
	writer domain.MarketWriter,
	watcher domain.TxWatcher,
	cache domain.SnapshotCache,
	audit domain.AuditStore,
	notif Notifier,
	logger *slog.Logger,
) *RedemptionWorkflow {
	return &RedemptionWorkflow{
		polls:   polls,
		trades:  trades,
		writer:  writer,
		watcher: watcher,
		cache:   cache,
		audit:   audit,
		notif:   notif,
		logger:  logger.With(slog.String("component", "redeem_workflow")),
	}
}

// Execute redeems the user's winnings on a resolved poll.
func (w *RedemptionWorkflow) Execute(ctx context.Context, user domain.User, pollID string) (domain.RewardClaim, error) {
	if !user.HasWallet() {
		return domain.RewardClaim{}, domain.ErrWalletNotConnected
	}

	poll, err := w.polls.GetByID(ctx, pollID)
	if err != nil {
		return domain.RewardClaim{}, err
	}
	if !poll.IsResolved {
		return domain.RewardClaim{}, domain.Validationf("pollId", "poll %s is not resolved", pollID)
	}
	if !poll.OnChain() {
		return domain.RewardClaim{}, domain.Validationf("pollId", "poll %s has no market attached", pollID)
	}
	marketID := *poll.MarketID

	claimed, err := w.trades.RewardClaimed(ctx, pollID, user.ID)
	if err != nil {
		return domain.RewardClaim{}, err
	}
	if claimed {
		return domain.RewardClaim{}, domain.ErrAlreadyClaimed
	}

	txID, err := w.writer.Redeem(ctx, user.WalletAddress, marketID)
	if err != nil {
		return domain.RewardClaim{}, err
	}

	record, err := w.watcher.WaitForConfirmation(ctx, txID)
	if err != nil {
		return domain.RewardClaim{}, fmt.Errorf("workflow: confirm redeem %s: %w", txID, err)
	}
	if record.Status != domain.TxSuccess {
		return domain.RewardClaim{}, &domain.ChainCallError{TxID: txID, Status: record.Status, Result: record.Result}
	}

	claim := domain.RewardClaim{
		PollID:    pollID,
		UserID:    user.ID,
		TxID:      txID,
		ClaimedAt: time.Now().UTC(),
	}
	if err := w.trades.MarkRewardClaimed(ctx, claim); err != nil {
		// A duplicate key means a concurrent claim already landed the
		// row for this confirmed redemption; the ledger is consistent.
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			return claim, nil
		}
		w.escalate(ctx, user.ID, pollID, txID, err)
		return domain.RewardClaim{}, &domain.LedgerWriteError{TxID: txID, Err: err}
	}

	w.logger.Info("redemption confirmed",
		slog.String("poll_id", pollID),
		slog.String("user_id", user.ID),
		slog.String("tx_id", txID))

	if err := w.cache.Invalidate(ctx, marketID); err != nil {
		w.logger.Warn("snapshot invalidation failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()))
	}
	return claim, nil
}

func (w *RedemptionWorkflow) escalate(ctx context.Context, userID, pollID, txID string, cause error) {
	w.logger.Error("claim write failed for confirmed tx",
		slog.String("poll_id", pollID),
		slog.String("tx_id", txID),
		slog.String("error", cause.Error()))

	entry := domain.AuditEntry{
		Kind:   EventLedgerWriteFailed,
		Actor:  userID,
		PollID: pollID,
		TxID:   txID,
		Detail: map[string]any{"operation": "redeem", "error": cause.Error()},
	}
	if err := w.audit.Record(ctx, entry); err != nil {
		w.logger.Error("audit record failed", slog.String("error", err.Error()))
	}
	if w.notif != nil {
		msg := fmt.Sprintf("redeem tx %s confirmed on chain but claim write failed: %v", txID, cause)
		if err := w.notif.Notify(ctx, EventLedgerWriteFailed, "Ledger write failed", msg); err != nil {
			w.logger.Error("notify failed", slog.String("error", err.Error()))
		}
	}
}
