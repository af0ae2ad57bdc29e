package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Zachkp/folio/internal/goroutine"
)

// ErrHubStopped is returned by Publish after Run has returned.
var ErrHubStopped = errors.New("ws: hub stopped")

// Hub fans server events out to the websocket clients of each session.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	onEmpty    func(uuid.UUID)
}

type message struct {
	sessionID uuid.UUID
	payload   []byte
}

// Envelope is the wire format in both directions: Type names the event or
// command and Data carries its payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewHub creates a hub. onEmpty, if set, is called after the last client of a
// session disconnects.
func NewHub(onEmpty func(uuid.UUID)) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		onEmpty:    onEmpty,
	}
}

// Run is the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.sessionID, msg.payload)
		}
	}
}

// Register adds a client. It reports false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for every client of the session.
func (h *Hub) Publish(sessionID uuid.UUID, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "ws: encoding %s payload", event)
	}
	payload, err := json.Marshal(Envelope{Type: event, Data: raw})
	if err != nil {
		return errors.Wrapf(err, "ws: encoding %s", event)
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- message{sessionID: sessionID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Connected reports how many clients a session has.
func (h *Hub) Connected(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.sessionID]; !ok {
		h.clients[client.sessionID] = make(map[*Client]struct{})
	}
	h.clients[client.sessionID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.clients[client.sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, live := clients[client]; !live {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	client.closeSend()
	empty := len(clients) == 0
	if empty {
		delete(h.clients, client.sessionID)
	}
	h.mu.Unlock()

	if empty && h.onEmpty != nil {
		id := client.sessionID
		goroutine.SafeGo(func() { h.onEmpty(id) })
	}
}

func (h *Hub) send(sessionID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.send <- payload:
		default:
			// slow consumer; drop the connection
			goroutine.SafeGo(client.Close)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
		delete(h.clients, id)
	}
}
