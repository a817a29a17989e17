// Package websocket streams audit events to connected administrators.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
)

// ErrHubBusy is returned when the broadcast queue is full and the event was not streamed.
var ErrHubBusy = errors.New("audit stream queue full")

// Hub maintains active WebSocket connections and broadcasts audit events to them.
// It is an audit.Sink.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Events waiting to be broadcast
	broadcast chan audit.Event

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(ctx context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		broadcast:  make(chan audit.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		ctx:        hubCtx,
		cancel:     cancel,
		log:        log,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case e := <-h.broadcast:
			h.deliver(&e)
		}
	}
}

func (h *Hub) deliver(e *audit.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Warn("audit stream: marshal event", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if !client.filter.Matches(e) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, close connection
			h.log.Info("audit stream: dropping slow client", zap.String("client_id", client.id))
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Stop stops the hub and closes every client.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Close implements io.Closer so the audit log can shut the hub down.
func (h *Hub) Close() error {
	h.Stop()
	return nil
}

// Name identifies the hub as an audit sink.
func (h *Hub) Name() string { return "websocket" }

// Write queues e for broadcast without blocking the request that produced it.
func (h *Hub) Write(_ context.Context, e *audit.Event) error {
	if h.ctx.Err() != nil {
		return nil
	}
	select {
	case h.broadcast <- *e:
		return nil
	default:
		return ErrHubBusy
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
