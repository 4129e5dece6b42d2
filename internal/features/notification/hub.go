package notification

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Hub tracks open websocket connections per user and pushes new
// notifications to them. Delivery is best-effort; the persisted record is
// the source of truth.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*websocket.Conn // userID -> connections
}

func NewHub() *Hub {
	return &Hub{conns: map[string][]*websocket.Conn{}}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], conn)
}

func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.conns[userID]
	for i, c := range conns {
		if c == conn {
			h.conns[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Push writes the notification to every open connection of the user. Dead
// connections are dropped on the next read loop, not here.
func (h *Hub) Push(userID string, n *Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := append([]*websocket.Conn{}, h.conns[userID]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}
