package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Envelope is the wire format pushed to connected dashboards.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type pushRequest struct {
	userIDs []int64
	payload []byte
}

// Hub tracks connected dashboard clients per user and fans events out
// to them. One user may hold several connections (tabs, devices).
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	push       chan pushRequest

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		push:       make(chan pushRequest, 256),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.push:
			h.deliver(req)
		}
	}
}

// Push queues an event for the given users. It never blocks the caller:
// when the hub's queue is full the event is dropped, since realtime
// pushes are best-effort on top of the persisted notification rows.
func (h *Hub) Push(userIDs []int64, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to marshal websocket envelope", zap.Error(err))
		return
	}

	select {
	case h.push <- pushRequest{userIDs: userIDs, payload: payload}:
	default:
		h.logger.Warn("websocket push queue full, dropping event", zap.String("event", event))
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug("websocket client connected", zap.Int64("user_id", client.userID))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.userID]; ok {
		if _, ok := conns[client]; ok {
			delete(conns, client)
			close(client.send)
			if len(conns) == 0 {
				delete(h.clients, client.userID)
			}
		}
	}
}

func (h *Hub) deliver(req pushRequest) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range req.userIDs {
		for client := range h.clients[userID] {
			select {
			case client.send <- req.payload:
			default:
				// Slow consumer: drop the event for this connection.
				h.logger.Warn("websocket client send buffer full", zap.Int64("user_id", userID))
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.clients {
		for client := range conns {
			close(client.send)
			client.conn.Close()
		}
		delete(h.clients, userID)
	}
}
