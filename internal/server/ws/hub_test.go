package ws

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// recordBus is an in-process SignalBus that tracks subscriptions and
// their stop calls per channel.
type recordBus struct {
	mu       sync.Mutex
	handlers map[string]func([]byte)
	subs     map[string]int
	stops    map[string]int
}

func newRecordBus() *recordBus {
	return &recordBus{
		handlers: make(map[string]func([]byte)),
		subs:     make(map[string]int),
		stops:    make(map[string]int),
	}
}

func (b *recordBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[channel]
	b.mu.Unlock()
	if h != nil {
		h(payload)
	}
	return nil
}

func (b *recordBus) Subscribe(_ context.Context, channel string, handler func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = handler
	b.subs[channel]++
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.stops[channel]++
	}, nil
}

func (b *recordBus) counts(channel string) (subs, stops int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[channel], b.stops[channel]
}

type recordBridge struct {
	attached []string
	detached []string
}

func (b *recordBridge) Attach(principal string) { b.attached = append(b.attached, principal) }
func (b *recordBridge) Detach(principal string) { b.detached = append(b.detached, principal) }
func (b *recordBridge) HandleReply(context.Context, []byte) error {
	return nil
}

func newTestHub(bus domain.SignalBus, bridge WalletBridge) *Hub {
	return NewHub(bus, bridge, slog.New(slog.DiscardHandler))
}

// newTestClient registers a connectionless client on the hub so room and
// wallet plumbing can be driven without a real websocket.
func newTestClient(h *Hub) *client {
	c := &client{
		hub:   h,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func TestRoomSubscriptionIsRefcounted(t *testing.T) {
	bus := newRecordBus()
	h := newTestHub(bus, nil)
	c1 := newTestClient(h)
	c2 := newTestClient(h)

	h.joinRoom(c1, "poll-1")
	h.joinRoom(c2, "poll-1")

	subs, stops := bus.counts(domain.PollChannel("poll-1"))
	assert.Equal(t, 1, subs, "second join reuses the subscription")
	assert.Equal(t, 0, stops)
	assert.Equal(t, []string{"poll-1"}, h.ActivePolls())

	h.leaveRoom(c1, "poll-1")
	_, stops = bus.counts(domain.PollChannel("poll-1"))
	assert.Equal(t, 0, stops, "room still has a member")

	h.leaveRoom(c2, "poll-1")
	_, stops = bus.counts(domain.PollChannel("poll-1"))
	assert.Equal(t, 1, stops, "last leave drops the subscription")
	assert.Empty(t, h.ActivePolls(), "empty room is removed")
}

func TestBroadcastReachesRoomMembers(t *testing.T) {
	bus := newRecordBus()
	h := newTestHub(bus, nil)
	member := newTestClient(h)
	outsider := newTestClient(h)

	h.joinRoom(member, "poll-1")

	require.NoError(t, bus.Publish(context.Background(), domain.PollChannel("poll-1"), []byte(`{"type":"trade"}`)))

	select {
	case msg := <-member.send:
		assert.JSONEq(t, `{"type":"trade"}`, string(msg))
	default:
		t.Fatal("member received nothing")
	}
	assert.Empty(t, outsider.send)
}

func TestDisconnectTearsDownRoomsAndWallet(t *testing.T) {
	bus := newRecordBus()
	bridge := &recordBridge{}
	h := newTestHub(bus, bridge)
	c := newTestClient(h)

	h.joinRoom(c, "poll-1")
	h.joinRoom(c, "poll-2")
	h.attachWallet(c, "ST1OWNER")
	require.Equal(t, []string{"ST1OWNER"}, bridge.attached)

	h.disconnect(c)

	for _, ch := range []string{
		domain.PollChannel("poll-1"),
		domain.PollChannel("poll-2"),
		domain.WalletChannel("ST1OWNER"),
	} {
		_, stops := bus.counts(ch)
		assert.Equal(t, 1, stops, "subscription %s not stopped", ch)
	}
	assert.Equal(t, []string{"ST1OWNER"}, bridge.detached)
	assert.Empty(t, h.ActivePolls())

	_, open := <-c.send
	assert.False(t, open, "send channel closed on disconnect")
}

func TestWalletSubscriptionSharedAcrossTabs(t *testing.T) {
	bus := newRecordBus()
	bridge := &recordBridge{}
	h := newTestHub(bus, bridge)
	tab1 := newTestClient(h)
	tab2 := newTestClient(h)

	h.attachWallet(tab1, "ST1OWNER")
	h.attachWallet(tab2, "ST1OWNER")

	subs, _ := bus.counts(domain.WalletChannel("ST1OWNER"))
	assert.Equal(t, 1, subs, "one bus subscription per principal")
	assert.Len(t, bridge.attached, 2, "the bridge counts each tab")

	h.disconnect(tab1)
	_, stops := bus.counts(domain.WalletChannel("ST1OWNER"))
	assert.Equal(t, 0, stops, "principal still has a tab")

	h.disconnect(tab2)
	_, stops = bus.counts(domain.WalletChannel("ST1OWNER"))
	assert.Equal(t, 1, stops)
	assert.Len(t, bridge.detached, 2)
}
