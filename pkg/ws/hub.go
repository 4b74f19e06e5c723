// Package ws pushes chat events (new messages, typing, presence) to
// connected clients over websockets.
package ws

import (
	"sync"

	"relay/pkg/logger"
)

// Event is a single push frame.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub tracks connected clients by user. One user may hold several
// connections (multiple tabs or devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Default is the process-wide hub.
var Default = NewHub()

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	logger.Debug("ws_client_added", "user", c.userID)
}

func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Connected reports whether a user has at least one live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUsers delivers an event to every connection of the given users.
// Slow clients get dropped frames rather than blocking the sender.
func (h *Hub) SendToUsers(ev Event, userIDs ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			select {
			case c.send <- ev:
			default:
				logger.Warn("ws_send_dropped", "user", uid, "type", ev.Type)
			}
		}
	}
}
