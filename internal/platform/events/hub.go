// Package events pushes committed store changes to connected staff clients
// over Server-Sent Events and WebSockets, so open lists refresh without
// polling.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/store"
)

// Client is one connected stream. A client that never subscribed receives
// every entity. Once it subscribes it receives only its topics, and
// unsubscribing from all of them leaves it receiving nothing.
type Client struct {
	ID   string
	Send chan []byte

	mu       sync.RWMutex
	topics   map[string]struct{}
	filtered bool
}

func NewClient(id string, buffer int, topics ...string) *Client {
	c := &Client{ID: id, Send: make(chan []byte, buffer), topics: map[string]struct{}{}}
	c.Subscribe(topics...)
	return c
}

func (c *Client) Subscribe(topics ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		if t != "" {
			c.topics[t] = struct{}{}
			c.filtered = true
		}
	}
}

func (c *Client) Unsubscribe(topics ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.topics, t)
	}
}

// Wants reports whether an event for topic should be delivered.
func (c *Client) Wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filtered {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

// Hub fans store events out to clients. Slow clients lose messages instead
// of blocking the others.
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	dropped atomic.Int64
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "events").Logger(),
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes c and closes its Send channel. Unregistering twice is
// a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

// Broadcast delivers ev to every client that wants its entity.
func (h *Hub) Broadcast(ev store.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}
	topic := string(ev.Entity)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.Wants(topic) {
			continue
		}
		select {
		case c.Send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// Run forwards events until ctx is done or the channel closes. After that
// every remaining client is disconnected.
func (h *Hub) Run(ctx context.Context, in <-chan store.Event) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			h.Broadcast(ev)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.Send)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped is the number of messages skipped because a client buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
