package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across store, cache, chain and service layers.
// Callers branch on these with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on unique constraint violations.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized is returned when a request lacks a valid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the session user may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned when a per-user action budget is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrWalletNotConnected is returned by write paths when no wallet
	// principal is attached to the session.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrUserCancelled is returned when the user dismissed the wallet
	// signing prompt. It is an expected outcome, not a failure.
	ErrUserCancelled = errors.New("user cancelled")

	// ErrPromptTimeout is returned when the wallet signing prompt expired
	// with no answer from the client. Nothing was submitted on chain.
	ErrPromptTimeout = errors.New("wallet prompt expired")

	// ErrNoTxID is returned when a wallet reported success without a
	// transaction ID. The submission cannot be tracked and must not be
	// recorded.
	ErrNoTxID = errors.New("wallet returned no transaction id")

	// ErrTxTimeout is returned when confirmation polling exhausted its
	// attempt budget. The transaction status is unknown, not failed.
	ErrTxTimeout = errors.New("transaction confirmation timed out: status unknown")

	// ErrPollResolved is returned when a trade targets a resolved poll.
	ErrPollResolved = errors.New("poll already resolved")

	// ErrAlreadyClaimed is returned when a redemption was already recorded.
	ErrAlreadyClaimed = errors.New("reward already claimed")

	// ErrLockHeld is returned when a distributed lock is owned elsewhere.
	ErrLockHeld = errors.New("lock held")
)

// ValidationError reports a rejected input field. Trades and polls are
// validated before any chain interaction so a bad request never reaches
// the wallet.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ChainCallError reports a transaction that reached the chain and was
// rejected there. Status is the terminal transaction status and Result
// carries the raw contract response for diagnostics.
type ChainCallError struct {
	TxID   string
	Status TxStatus
	Result string
}

func (e *ChainCallError) Error() string {
	if e.Result != "" {
		return fmt.Sprintf("chain call %s failed with status %s: %s", e.TxID, e.Status, e.Result)
	}
	return fmt.Sprintf("chain call %s failed with status %s", e.TxID, e.Status)
}

// LedgerWriteError reports a confirmed on-chain transaction whose ledger
// row could not be written. The money moved but the ledger does not know;
// this is a reconciliation problem and must be surfaced loudly.
type LedgerWriteError struct {
	TxID string
	Err  error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write failed for confirmed tx %s: %v", e.TxID, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }
