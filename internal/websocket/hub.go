// Package websocket keeps track of connected dashboard browsers and pushes
// notifications to them.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	logger *slog.Logger

	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new hub. Run must be started before clients register.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done, closing every
// client's send channel. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "clients", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "clients", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues message for every connected client. It never blocks; when
// the queue is full the message is dropped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub. It reports false when the hub has
// stopped, in which case client.Send() is already closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		client.closeSend()
		return false
	}
}

// Unregister removes a client from the hub. It returns immediately once the
// hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one connected browser.
type Client struct {
	hub       *Hub
	send      chan []byte
	closeOnce sync.Once
}

// closeSend closes send exactly once, whether the hub or a failed Register
// gets there first.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// NewClient creates a client bound to hub.
func NewClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

// Send returns the channel of outgoing messages. It is closed when the hub
// drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Queue sends message to this client only. It reports false when the
// client's buffer is full.
func (c *Client) Queue(message []byte) (ok bool) {
	defer func() {
		// send was closed by the hub
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}
