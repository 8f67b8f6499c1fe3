package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Message types pushed to clients
const (
	TypeBookingCreated   = "booking_created"
	TypeBookingStatus    = "booking_status"
	TypePaymentCompleted = "payment_completed"
	TypePing             = "ping"
	TypePong             = "pong"
)

// Message is the envelope for every frame exchanged with a client
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessageHandler handles a message received from a client
type MessageHandler func(*Client, *Message) error

// Hub tracks live connections per account. An account may hold several
// connections at once (one per open tab or device).
type Hub struct {
	clients map[uint]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	handlers map[string]MessageHandler

	// done is closed once Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[uint]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		handlers:   make(map[string]MessageHandler),
		done:       make(chan struct{}),
	}
	hub.handlers[TypePing] = hub.handlePing
	return hub
}

// Run starts the hub's main loop and closes every connection when ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.clients[client.AccountID] == nil {
				h.clients[client.AccountID] = make(map[*Client]bool)
			}
			h.clients[client.AccountID][client] = true
			h.mu.Unlock()
			log.Printf("🔌 Client registered: account=%d role=%s", client.AccountID, client.Role)

		case client := <-h.Unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.AccountID]; ok && conns[client] {
				delete(conns, client)
				if len(conns) == 0 {
					delete(h.clients, client.AccountID)
				}
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: account=%d", client.AccountID)

		case <-ctx.Done():
			h.mu.Lock()
			for _, conns := range h.clients {
				for client := range conns {
					close(client.send)
				}
			}
			h.clients = make(map[uint]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// SendToUser pushes a message to every connection of an account. Offline
// accounts are skipped; nothing is queued for later.
func (h *Hub) SendToUser(accountID uint, message *Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	// Sends happen under the read lock so Run cannot close a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.clients[accountID]
	if len(conns) == 0 {
		return
	}
	for client := range conns {
		select {
		case client.send <- data:
		default:
			log.Printf("⚠️ Account %d's send buffer is full, dropping %s", accountID, message.Type)
		}
	}
}

// IsUserConnected checks if an account has at least one live connection
func (h *Hub) IsUserConnected(accountID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID]) > 0
}

// ConnectedCount returns the number of live connections
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// deliver queues data for one client if it is still registered
func (h *Hub) deliver(client *Client, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client.AccountID][client] {
		return ErrClientGone
	}
	select {
	case client.send <- data:
		return nil
	default:
		return ErrClientBufferFull
	}
}

func (h *Hub) dispatch(client *Client, message *Message) {
	handler, exists := h.handlers[message.Type]
	if !exists {
		log.Printf("⚠️ Unknown message type: %s", message.Type)
		return
	}
	if err := handler(client, message); err != nil {
		log.Printf("❌ Error handling message: %v", err)
	}
}

// handlePing answers a client ping for connection health
func (h *Hub) handlePing(client *Client, _ *Message) error {
	return client.SendMessage(&Message{Type: TypePong, Timestamp: time.Now()})
}
