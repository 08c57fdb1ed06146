package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the wire shape of every pushed event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks live client connections by target key, a user id. Delivery is
// best-effort: nobody listening is a normal condition, and a slow client is
// dropped rather than awaited.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Notify pushes an event to every connection registered under target and
// reports whether anyone accepted it. It never blocks on a client.
func (h *Hub) Notify(target, event string, payload interface{}) bool {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("ws: marshaling %s event: %v", event, err)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := false
	for client := range h.clients {
		if client.target != target {
			continue
		}
		select {
		case client.send <- data:
			delivered = true
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
	return delivered
}
