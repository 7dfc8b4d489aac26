package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"weave/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps userID -> connected WebSocket clients and fans incoming Redis
// messages out to them.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "connection event hub" }

// Register adds a connection for the given userID. It fails when either
// the per-user or the global connection limit is reached.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	return client, nil
}

// UnregisterClient removes the client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
}

// Broadcast sends message to every connection of userID. Clients whose
// send buffer is full are dropped rather than blocked on.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.Send <- []byte(message):
		default:
			observability.WebSocketBackpressureDrops.WithLabelValues(h.Name(), "send_buffer_full").Inc()
			slog.Warn("dropping slow websocket client",
				slog.Uint64("user_id", uint64(userID)))
			c.Close()
			h.UnregisterClient(c)
		}
	}
}

// StartWiring subscribes the hub to the notifier's per-user channels so
// events published by any instance reach clients connected to this one.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, ok := userIDFromChannel(channel)
		if !ok {
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every client connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, m := range h.conns {
		for c := range m {
			c.Close()
		}
		delete(h.conns, userID)
	}
	h.totalConns = 0
	return nil
}

func userIDFromChannel(channel string) (uint, bool) {
	idx := strings.LastIndex(channel, ":")
	if idx < 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(channel[idx+1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
