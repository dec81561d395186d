package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/tallix-com/prodgo/internal/production"
)

// Hub maintains the set of connected scanner and dashboard clients and fans
// ledger events out to them so open UIs refresh without polling.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.ClientID != "" {
				// A reconnecting client replaces its old connection
				if old, ok := h.clients[client.ClientID]; ok {
					close(old.send)
					delete(h.clients, client.ClientID)
				}
				h.clients[client.ClientID] = client
				log.Printf("📱 Client connected: %s", client.ClientID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if client.ClientID != "" {
				if _, ok := h.clients[client.ClientID]; ok {
					delete(h.clients, client.ClientID)
					close(client.send)
					log.Printf("📴 Client disconnected: %s", client.ClientID)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full or client dead; drop the frame
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish implements production.EventPublisher: every committed ledger change
// is pushed to all connected clients.
func (h *Hub) Publish(evt production.Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}
	h.broadcast <- msg
}
