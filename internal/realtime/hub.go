// Package realtime pushes board change notifications to connected browsers
// over websockets. Messages only say what changed; clients refetch the board.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type envelope struct {
	workspaceID uuid.UUID
	payload     []byte
}

// Hub keeps one room of clients per workspace.
type Hub struct {
	rooms      map[uuid.UUID]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *log.Logger

	mu      sync.RWMutex
	counts  map[uuid.UUID]int
	dropped int64
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		counts:     make(map[uuid.UUID]int),
	}
}

// Register adds a client to its workspace room. Once the hub has stopped the
// client's send channel is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish satisfies services.Publisher. It never blocks the caller; events
// are dropped when the hub is saturated.
func (h *Hub) Publish(_ context.Context, event services.BoardEvent) {
	payload, err := json.Marshal(Message{Type: string(event.Type), Data: event})
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal board event")
		return
	}

	select {
	case h.broadcast <- envelope{workspaceID: event.WorkspaceID, payload: payload}:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.logger.WithField("workspace_id", event.WorkspaceID).Warn("realtime hub saturated, dropping event")
	}
}

// Clients returns the number of live connections for a workspace.
func (h *Hub) Clients(workspaceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[workspaceID]
}

func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, n := range h.counts {
		total += n
	}
	return map[string]interface{}{
		"workspaces": len(h.counts),
		"clients":    total,
		"dropped":    h.dropped,
	}
}

// Run owns the rooms until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
			}
			h.rooms = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Lock()
			h.counts = make(map[uuid.UUID]int)
			h.mu.Unlock()
			return

		case client := <-h.register:
			room, ok := h.rooms[client.workspaceID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.workspaceID] = room
			}
			room[client] = true
			h.setCount(client.workspaceID, len(room))
			h.logger.WithField("workspace_id", client.workspaceID).
				WithField("user_id", client.userID).
				Debug("realtime client connected")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.workspaceID] {
				select {
				case client.send <- msg.payload:
				default:
					h.logger.WithField("user_id", client.userID).Warn("client send buffer full, disconnecting")
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	room := h.rooms[client.workspaceID]
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.workspaceID)
	}
	h.setCount(client.workspaceID, len(room))
	h.logger.WithField("workspace_id", client.workspaceID).
		WithField("user_id", client.userID).
		Debug("realtime client disconnected")
}

func (h *Hub) setCount(workspaceID uuid.UUID, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.counts, workspaceID)
		return
	}
	h.counts[workspaceID] = n
}
