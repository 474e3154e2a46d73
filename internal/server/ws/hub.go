// Package ws bridges the signal bus to browser clients. Each client
// joins per-poll rooms for live trade and price events, and a client
// with a connected wallet also receives signing requests for its
// principal.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// Client frame types.
const (
	frameJoinPoll      = "join-poll"
	frameLeavePoll     = "leave-poll"
	frameWalletConnect = "wallet-connect"
	frameWalletReply   = "wallet-reply"

	frameSignRequest = "wallet-sign-request"
)

// WalletBridge is the wallet relay surface the hub drives. Implemented
// by wallet.Bridge.
type WalletBridge interface {
	Attach(principal string)
	Detach(principal string)
	HandleReply(ctx context.Context, raw []byte) error
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// clientFrame is the JSON message clients send to manage rooms and relay
// wallet prompt outcomes.
type clientFrame struct {
	Type      string          `json:"type"`
	PollID    string          `json:"pollId,omitempty"`
	Principal string          `json:"principal,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// client represents a single WebSocket connection.
type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	rooms     map[string]bool
	principal string
	mu        sync.RWMutex
}

// room tracks one poll channel subscription shared by its members.
type room struct {
	members map[*client]bool
	stop    func()
}

// Hub manages connected WebSocket clients, their poll rooms, and the
// wallet relay for clients that announce a principal.
type Hub struct {
	bus    domain.SignalBus
	bridge WalletBridge
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]bool
	rooms   map[string]*room
	wallets map[string]*walletSub

	ctx context.Context
}

// walletSub is the bus subscription feeding one principal's clients.
type walletSub struct {
	members map[*client]bool
	stop    func()
}

// NewHub creates a hub. bridge may be nil when wallet relaying is not
// wired (archive mode).
func NewHub(bus domain.SignalBus, bridge WalletBridge, logger *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		bridge:  bridge,
		logger:  logger.With(slog.String("component", "ws_hub")),
		clients: make(map[*client]bool),
		rooms:   make(map[string]*room),
		wallets: make(map[string]*walletSub),
		ctx:     context.Background(),
	}
}

// Run parks until ctx is cancelled, then closes every client. Bus
// subscriptions are created per room as clients join.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	for id, rm := range h.rooms {
		rm.stop()
		delete(h.rooms, id)
	}
	for principal, ws := range h.wallets {
		ws.stop()
		delete(h.wallets, principal)
	}
	return ctx.Err()
}

// context returns the run context. Connection goroutines read it while
// Run replaces it under the lock.
func (h *Hub) context() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctx
}

// ActivePolls returns the polls that currently have room members. The
// snapshot refresher uses this to skip idle polls.
func (h *Hub) ActivePolls() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		out = append(out, id)
	}
	return out
}

// HandleWS upgrades an HTTP request to a WebSocket connection.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", slog.Int("total_clients", total))

	go c.writePump()
	go c.readPump()
}

// joinRoom adds the client to a poll room, creating the bus subscription
// on first join.
func (h *Hub) joinRoom(c *client, pollID string) {
	if pollID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[pollID]
	if !ok {
		stop, err := h.bus.Subscribe(h.ctx, domain.PollChannel(pollID), func(payload []byte) {
			h.broadcast(pollID, payload)
		})
		if err != nil {
			h.logger.Error("room subscribe failed",
				slog.String("poll_id", pollID),
				slog.String("error", err.Error()),
			)
			return
		}
		rm = &room{members: make(map[*client]bool), stop: stop}
		h.rooms[pollID] = rm
		h.logger.Info("room opened", slog.String("poll_id", pollID))
	}
	rm.members[c] = true

	c.mu.Lock()
	c.rooms[pollID] = true
	c.mu.Unlock()
}

// leaveRoom removes the client from a poll room, dropping the bus
// subscription when the room empties.
func (h *Hub) leaveRoom(c *client, pollID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c, pollID)
}

func (h *Hub) leaveRoomLocked(c *client, pollID string) {
	rm, ok := h.rooms[pollID]
	if !ok {
		return
	}
	delete(rm.members, c)
	if len(rm.members) == 0 {
		rm.stop()
		delete(h.rooms, pollID)
		h.logger.Info("room closed", slog.String("poll_id", pollID))
	}

	c.mu.Lock()
	delete(c.rooms, pollID)
	c.mu.Unlock()
}

// broadcast fans a poll event out to the room's members.
func (h *Hub) broadcast(pollID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rm, ok := h.rooms[pollID]
	if !ok {
		return
	}
	for c := range rm.members {
		select {
		case c.send <- payload:
		default:
			// Client's send buffer is full; drop the message.
			h.logger.Warn("dropping message for slow client",
				slog.String("poll_id", pollID))
		}
	}
}

// attachWallet binds the client to a principal: sign requests published
// for that principal are forwarded to the client.
func (h *Hub) attachWallet(c *client, principal string) {
	if principal == "" || h.bridge == nil {
		return
	}

	c.mu.Lock()
	previous := c.principal
	c.principal = principal
	c.mu.Unlock()
	if previous == principal {
		return
	}
	if previous != "" {
		h.detachWallet(c, previous)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ws, ok := h.wallets[principal]
	if !ok {
		stop, err := h.bus.Subscribe(h.ctx, domain.WalletChannel(principal), func(payload []byte) {
			h.forwardSignRequest(principal, payload)
		})
		if err != nil {
			h.logger.Error("wallet subscribe failed",
				slog.String("principal", principal),
				slog.String("error", err.Error()),
			)
			return
		}
		ws = &walletSub{members: make(map[*client]bool), stop: stop}
		h.wallets[principal] = ws
	}
	ws.members[c] = true
	h.bridge.Attach(principal)

	h.logger.Info("wallet attached", slog.String("principal", principal))
}

func (h *Hub) detachWallet(c *client, principal string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachWalletLocked(c, principal)
}

func (h *Hub) detachWalletLocked(c *client, principal string) {
	ws, ok := h.wallets[principal]
	if !ok {
		return
	}
	if !ws.members[c] {
		return
	}
	delete(ws.members, c)
	h.bridge.Detach(principal)
	if len(ws.members) == 0 {
		ws.stop()
		delete(h.wallets, principal)
	}
}

// forwardSignRequest wraps a bus signing request in the client frame
// envelope and pushes it to the principal's connections.
func (h *Hub) forwardSignRequest(principal string, payload []byte) {
	frame, err := json.Marshal(clientFrame{Type: frameSignRequest, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	ws, ok := h.wallets[principal]
	if !ok {
		return
	}
	for c := range ws.members {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("dropping sign request for slow client",
				slog.String("principal", principal))
		}
	}
}

// disconnect tears down all of the client's rooms and its wallet binding.
func (h *Hub) disconnect(c *client) {
	c.mu.RLock()
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	principal := c.principal
	c.mu.RUnlock()

	h.mu.Lock()
	for _, id := range rooms {
		h.leaveRoomLocked(c, id)
	}
	if principal != "" && h.bridge != nil {
		h.detachWalletLocked(c, principal)
	}
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client disconnected", slog.Int("total_clients", total))
}

// readPump reads frames from the WebSocket connection and applies room
// and wallet commands.
func (c *client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case frameJoinPoll:
			c.hub.joinRoom(c, frame.PollID)
		case frameLeavePoll:
			c.hub.leaveRoom(c, frame.PollID)
		case frameWalletConnect:
			c.hub.attachWallet(c, frame.Principal)
		case frameWalletReply:
			if c.hub.bridge == nil {
				continue
			}
			if err := c.hub.bridge.HandleReply(c.hub.context(), frame.Payload); err != nil {
				c.hub.logger.Warn("wallet reply rejected",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection and
// sends periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
