package wallet

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

const testPrincipal = "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP"

// memBus is an in-process SignalBus delivering messages synchronously in
// a goroutine per publish.
type memBus struct {
	mu   sync.Mutex
	subs map[string][]func([]byte)
}

func newMemBus() *memBus {
	return &memBus{subs: make(map[string][]func([]byte))}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	handlers := append([]func([]byte){}, b.subs[channel]...)
	b.mu.Unlock()
	for _, h := range handlers {
		go h(payload)
	}
	return nil
}

func (b *memBus) Subscribe(_ context.Context, channel string, handler func([]byte)) (func(), error) {
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], handler)
	b.mu.Unlock()
	return func() {}, nil
}

func newTestBridge(bus domain.SignalBus, timeout time.Duration) *Bridge {
	return NewBridge(bus, timeout, slog.New(slog.DiscardHandler))
}

func testCall() domain.ContractCall {
	return domain.ContractCall{
		ContractAddress: testPrincipal,
		ContractName:    "market-factory-v2",
		Function:        "buy-yes",
		Args:            []domain.ChainArg{domain.UintArg(big.NewInt(5_000_000))},
	}
}

// answer runs a fake client: it watches the principal's wallet channel
// and answers every sign request through HandleReply.
func answer(t *testing.T, bridge *Bridge, bus *memBus, reply func(req signRequest) signReply) {
	t.Helper()
	_, err := bus.Subscribe(context.Background(), domain.WalletChannel(testPrincipal), func(raw []byte) {
		var req signRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		out, err := json.Marshal(reply(req))
		require.NoError(t, err)
		require.NoError(t, bridge.HandleReply(context.Background(), out))
	})
	require.NoError(t, err)
}

func TestSignAndSubmitReturnsTxID(t *testing.T) {
	bus := newMemBus()
	bridge := newTestBridge(bus, time.Second)
	bridge.Attach(testPrincipal)

	answer(t, bridge, bus, func(req signRequest) signReply {
		require.Equal(t, "market-factory-v2", req.ContractName)
		require.Equal(t, "buy-yes", req.FunctionName)
		require.Len(t, req.FunctionArgs, 1)
		return signReply{RequestID: req.RequestID, Status: replySubmitted, TxID: "0xabc"}
	})

	txID, err := bridge.SignAndSubmit(context.Background(), testPrincipal, testCall())
	require.NoError(t, err)
	require.Equal(t, "0xabc", txID)
}

func TestSignAndSubmitCancelled(t *testing.T) {
	bus := newMemBus()
	bridge := newTestBridge(bus, time.Second)
	bridge.Attach(testPrincipal)

	answer(t, bridge, bus, func(req signRequest) signReply {
		return signReply{RequestID: req.RequestID, Status: replyCancelled}
	})

	_, err := bridge.SignAndSubmit(context.Background(), testPrincipal, testCall())
	require.ErrorIs(t, err, domain.ErrUserCancelled)
}

func TestSignAndSubmitEmptyTxID(t *testing.T) {
	bus := newMemBus()
	bridge := newTestBridge(bus, time.Second)
	bridge.Attach(testPrincipal)

	answer(t, bridge, bus, func(req signRequest) signReply {
		return signReply{RequestID: req.RequestID, Status: replySubmitted}
	})

	_, err := bridge.SignAndSubmit(context.Background(), testPrincipal, testCall())
	require.ErrorIs(t, err, domain.ErrNoTxID)
}

func TestSignAndSubmitNotConnected(t *testing.T) {
	bridge := newTestBridge(newMemBus(), time.Second)

	_, err := bridge.SignAndSubmit(context.Background(), testPrincipal, testCall())
	require.ErrorIs(t, err, domain.ErrWalletNotConnected)
}

func TestSignAndSubmitTimeout(t *testing.T) {
	bus := newMemBus()
	bridge := newTestBridge(bus, 50*time.Millisecond)
	bridge.Attach(testPrincipal)

	// Nobody answers. The caller must be able to tell an expired prompt
	// apart from a deliberate cancellation.
	_, err := bridge.SignAndSubmit(context.Background(), testPrincipal, testCall())
	require.ErrorIs(t, err, domain.ErrPromptTimeout)
	require.NotErrorIs(t, err, domain.ErrUserCancelled)
}

func TestAttachDetachCounting(t *testing.T) {
	bridge := newTestBridge(newMemBus(), time.Second)
	ctx := context.Background()

	bridge.Attach(testPrincipal)
	bridge.Attach(testPrincipal)
	bridge.Detach(testPrincipal)
	require.True(t, bridge.Connected(ctx, testPrincipal))

	bridge.Detach(testPrincipal)
	require.False(t, bridge.Connected(ctx, testPrincipal))
}
