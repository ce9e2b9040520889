package server

import (
	"sync"
)

// clientBuffer is how many messages a slow client may lag behind before it
// is dropped.
const clientBuffer = 8

// Message is pushed to every websocket client.
type Message struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// client is one websocket subscriber. Failed is closed when the hub drops it.
type client struct {
	Events chan Message
	Failed chan struct{}

	failOnce sync.Once
}

func newClient() *client {
	return &client{Events: make(chan Message, clientBuffer), Failed: make(chan struct{})}
}

func (c *client) fail() { c.failOnce.Do(func() { close(c.Failed) }) }

// Hub fans messages out to websocket clients. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) subscribe() *client {
	c := newClient()
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.fail()
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client without blocking. A client whose
// buffer is full is failed and removed.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.Events <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.unsubscribe(c)
	}
}
