package workflow

import (
	"context"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/pricing"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func onChainPoll() domain.Poll {
	marketID := int64(7)
	return domain.Poll{
		ID:       "poll-1",
		Title:    "Will BTC close above 100k?",
		Category: "crypto",
		Options: []domain.PollOption{
			{Text: "Yes", Percentage: 50},
			{Text: "No", Percentage: 50},
		},
		MarketID: &marketID,
		EndDate:  time.Now().Add(24 * time.Hour),
	}
}

func testUser() domain.User {
	return domain.User{
		ID:            "user-1",
		Username:      "satoshi",
		WalletAddress: "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP",
	}
}

type tradeEnv struct {
	wf      *TradeWorkflow
	polls   *fakePollStore
	trades  *fakeTradeStore
	reader  *fakeReader
	writer  *fakeWriter
	watcher *fakeWatcher
	cache   *fakeCache
	bus     *fakeBus
	limiter *fakeLimiter
	audit   *fakeAudit
	notif   *fakeNotifier
}

func newTradeEnv(poll domain.Poll) *tradeEnv {
	env := &tradeEnv{
		polls:  newFakePollStore(poll),
		trades: newFakeTradeStore(),
		reader: &fakeReader{
			open: true,
			snap: domain.MarketSnapshot{
				MarketID:  7,
				Pool:      big.NewInt(1_000_000_000),
				YesSupply: big.NewInt(400_000_000),
				NoSupply:  big.NewInt(600_000_000),
				FetchedAt: time.Now(),
			},
		},
		writer:  &fakeWriter{txID: "0xabc"},
		watcher: &fakeWatcher{record: domain.TxRecord{Status: domain.TxSuccess, Result: "(ok u42)"}},
		cache:   &fakeCache{},
		bus:     newFakeBus(),
		limiter: &fakeLimiter{allow: true},
		audit:   &fakeAudit{},
		notif:   &fakeNotifier{},
	}
	env.wf = NewTradeWorkflow(
		env.polls, env.trades, env.reader, env.writer, env.watcher,
		env.cache, env.bus, env.limiter, env.audit, env.notif,
		NewQuoter(pricing.NewReconciler(testLogger())),
		TradeOptions{MaxPerMinute: 10},
		testLogger(),
	)
	return env
}

func marketBuy(amount float64) domain.TradeRequest {
	return domain.TradeRequest{
		PollID:      "poll-1",
		Side:        domain.TradeBuy,
		OptionIndex: 0,
		Amount:      amount,
		OrderType:   domain.OrderMarket,
	}
}

func TestTradeConfirmedWritesOneLedgerRow(t *testing.T) {
	env := newTradeEnv(onChainPoll())

	trade, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))
	require.NoError(t, err)

	require.Len(t, env.trades.inserted, 1)
	assert.Equal(t, "0xabc", trade.TxID)
	assert.Equal(t, "0xabc", env.trades.inserted[0].TxID)
	assert.Equal(t, "Yes", trade.OptionText)
	assert.InDelta(t, 0.4, trade.Price, 1e-9)

	// Confirmation ran before the ledger write.
	require.Equal(t, []string{"0xabc"}, env.watcher.waited)

	assert.InDelta(t, 10, env.polls.volume["poll-1"], 1e-9)
	assert.Equal(t, []int64{7}, env.cache.invalidated)
	assert.Len(t, env.bus.published[domain.PollChannel("poll-1")], 1)
}

func TestTradeCancelledLeavesNoLedgerRow(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.writer.err = domain.ErrUserCancelled

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))
	require.ErrorIs(t, err, domain.ErrUserCancelled)

	assert.Empty(t, env.trades.inserted)
	assert.Empty(t, env.watcher.waited)
	assert.Empty(t, env.cache.invalidated)
}

func TestTradeRejectsNonBinaryPoll(t *testing.T) {
	poll := onChainPoll()
	poll.Options = append(poll.Options, domain.PollOption{Text: "Maybe"})
	env := newTradeEnv(poll)

	req := marketBuy(10)
	req.OptionIndex = 2

	_, err := env.wf.Execute(context.Background(), testUser(), req)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, env.writer.calls, "nothing reaches the wallet")
	assert.Empty(t, env.trades.inserted)
}

func TestTradeAbortedOnChainLeavesNoLedgerRow(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.watcher.record = domain.TxRecord{
		Status: domain.TxAbortByPostCondition,
		Result: "(err u205)",
	}

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))

	var chainErr *domain.ChainCallError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, "0xabc", chainErr.TxID)
	assert.Equal(t, domain.TxAbortByPostCondition, chainErr.Status)
	assert.Equal(t, "(err u205)", chainErr.Result)

	assert.Empty(t, env.trades.inserted)
}

func TestTradeConfirmationTimeoutLeavesNoLedgerRow(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.watcher.err = domain.ErrTxTimeout

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))
	require.ErrorIs(t, err, domain.ErrTxTimeout)

	assert.Empty(t, env.trades.inserted)
}

func TestTradeLedgerWriteFailureEscalates(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.trades.insertErr = context.DeadlineExceeded

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))

	var ledgerErr *domain.LedgerWriteError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, "0xabc", ledgerErr.TxID)

	require.Len(t, env.audit.entries, 1)
	assert.Equal(t, EventLedgerWriteFailed, env.audit.entries[0].Kind)
	assert.Equal(t, "0xabc", env.audit.entries[0].TxID)
	assert.Equal(t, []string{EventLedgerWriteFailed}, env.notif.events)
}

func TestTradeLimitOrderUsesCappedCall(t *testing.T) {
	env := newTradeEnv(onChainPoll())

	req := marketBuy(10)
	req.OrderType = domain.OrderLimit
	req.Price = 0.45

	trade, err := env.wf.Execute(context.Background(), testUser(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, trade.Price, 1e-9)

	require.Len(t, env.writer.calls, 1)
	call := env.writer.calls[0]
	assert.Equal(t, "buy-capped", call.fn)
	assert.Equal(t, big.NewInt(10_000_000), call.amount)

	// Quote total is amount plus 3% fees; caps derive from it.
	assert.Equal(t, big.NewInt(103_000_000), call.targetCap)
	assert.Equal(t, big.NewInt(11_330_000), call.maxCost)
}

func TestTradeSellRoutesToSellFunction(t *testing.T) {
	env := newTradeEnv(onChainPoll())

	req := marketBuy(5)
	req.Side = domain.TradeSell
	req.OptionIndex = 1

	_, err := env.wf.Execute(context.Background(), testUser(), req)
	require.NoError(t, err)

	require.Len(t, env.writer.calls, 1)
	assert.Equal(t, "sell", env.writer.calls[0].fn)
	assert.Equal(t, domain.SideNo, env.writer.calls[0].side)
}

func TestTradeRejectsResolvedPoll(t *testing.T) {
	poll := onChainPoll()
	poll.IsResolved = true
	env := newTradeEnv(poll)

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))
	require.ErrorIs(t, err, domain.ErrPollResolved)
	assert.Empty(t, env.writer.calls)
}

func TestTradeRejectsPausedMarket(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.reader.open = false

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, env.writer.calls)
}

func TestTradeRejectsWithoutWallet(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	user := testUser()
	user.WalletAddress = ""

	_, err := env.wf.Execute(context.Background(), user, marketBuy(10))
	require.ErrorIs(t, err, domain.ErrWalletNotConnected)
}

func TestTradeRateLimited(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.limiter.allow = false

	_, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, []string{"trade:user-1"}, env.limiter.keys)
}

func TestTradeSnapshotFailureStillTrades(t *testing.T) {
	env := newTradeEnv(onChainPoll())
	env.reader.snapErr = context.DeadlineExceeded

	trade, err := env.wf.Execute(context.Background(), testUser(), marketBuy(10))
	require.NoError(t, err)

	// Degraded quote falls back to the ledger percentage.
	assert.InDelta(t, 0.5, trade.Price, 1e-9)
	require.Len(t, env.trades.inserted, 1)
}

func TestTradeRejectsMalformedRequest(t *testing.T) {
	env := newTradeEnv(onChainPoll())

	req := marketBuy(-1)
	_, err := env.wf.Execute(context.Background(), testUser(), req)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)
	assert.Empty(t, env.writer.calls)
}
