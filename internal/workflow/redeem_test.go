package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

type redeemEnv struct {
	wf      *RedemptionWorkflow
	polls   *fakePollStore
	trades  *fakeTradeStore
	writer  *fakeWriter
	watcher *fakeWatcher
	cache   *fakeCache
	audit   *fakeAudit
	notif   *fakeNotifier
}

func newRedeemEnv(poll domain.Poll) *redeemEnv {
	env := &redeemEnv{
		polls:   newFakePollStore(poll),
		trades:  newFakeTradeStore(),
		writer:  &fakeWriter{txID: "0xdef"},
		watcher: &fakeWatcher{record: domain.TxRecord{Status: domain.TxSuccess}},
		cache:   &fakeCache{},
		audit:   &fakeAudit{},
		notif:   &fakeNotifier{},
	}
	env.wf = NewRedemptionWorkflow(
		env.polls, env.trades, env.writer, env.watcher,
		env.cache, env.audit, env.notif, testLogger(),
	)
	return env
}

func resolvedPoll() domain.Poll {
	poll := onChainPoll()
	poll.IsResolved = true
	winner := 0
	poll.WinningOption = &winner
	return poll
}

func TestRedeemConfirmedRecordsClaim(t *testing.T) {
	env := newRedeemEnv(resolvedPoll())

	claim, err := env.wf.Execute(context.Background(), testUser(), "poll-1")
	require.NoError(t, err)

	assert.Equal(t, "0xdef", claim.TxID)
	require.Len(t, env.trades.claims, 1)
	assert.Equal(t, "poll-1", env.trades.claims[0].PollID)
	assert.Equal(t, "user-1", env.trades.claims[0].UserID)
	assert.Equal(t, []int64{7}, env.cache.invalidated)
}

func TestRedeemRejectsUnresolvedPoll(t *testing.T) {
	env := newRedeemEnv(onChainPoll())

	_, err := env.wf.Execute(context.Background(), testUser(), "poll-1")

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, env.writer.calls)
}

func TestRedeemRejectsSecondClaim(t *testing.T) {
	env := newRedeemEnv(resolvedPoll())

	_, err := env.wf.Execute(context.Background(), testUser(), "poll-1")
	require.NoError(t, err)

	_, err = env.wf.Execute(context.Background(), testUser(), "poll-1")
	require.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	// Only the first attempt reached the wallet.
	require.Len(t, env.writer.calls, 1)
	assert.Equal(t, "redeem", env.writer.calls[0].fn)
}

func TestRedeemChainRejectionLeavesNoClaim(t *testing.T) {
	env := newRedeemEnv(resolvedPoll())
	env.watcher.record = domain.TxRecord{Status: domain.TxAbortByResponse, Result: "(err u301)"}

	_, err := env.wf.Execute(context.Background(), testUser(), "poll-1")

	var chainErr *domain.ChainCallError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, domain.TxAbortByResponse, chainErr.Status)
	assert.Empty(t, env.trades.claims)
}

func TestRedeemTimeoutLeavesNoClaim(t *testing.T) {
	env := newRedeemEnv(resolvedPoll())
	env.watcher.err = domain.ErrTxTimeout

	_, err := env.wf.Execute(context.Background(), testUser(), "poll-1")
	require.ErrorIs(t, err, domain.ErrTxTimeout)
	assert.Empty(t, env.trades.claims)
}

func TestRedeemClaimWriteFailureEscalates(t *testing.T) {
	env := newRedeemEnv(resolvedPoll())
	env.trades.claimErr = context.DeadlineExceeded

	_, err := env.wf.Execute(context.Background(), testUser(), "poll-1")

	var ledgerErr *domain.LedgerWriteError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, "0xdef", ledgerErr.TxID)

	require.Len(t, env.audit.entries, 1)
	assert.Equal(t, EventLedgerWriteFailed, env.audit.entries[0].Kind)
	assert.Equal(t, []string{EventLedgerWriteFailed}, env.notif.events)
}

func TestRedeemRequiresWallet(t *testing.T) {
	env := newRedeemEnv(resolvedPoll())
	user := testUser()
	user.WalletAddress = ""

	_, err := env.wf.Execute(context.Background(), user, "poll-1")
	require.ErrorIs(t, err, domain.ErrWalletNotConnected)
}
