// Package sync pushes session state changes to websocket subscribers.
package sync

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Hub fans events out to the connections of one session. Writes happen
// under the hub lock so each connection has a single writer.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]struct{}
}

type Stats struct {
	Sessions int `json:"sessions"`
	Clients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*websocket.Conn]struct{})}
}

// Subscribe writes first to ws and then registers it for sessionID.
func (h *Hub) Subscribe(sessionID string, ws *websocket.Conn, first any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if first != nil {
		if err := writeJSON(ws, first); err != nil {
			return err
		}
	}
	conns, ok := h.subs[sessionID]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		h.subs[sessionID] = conns
	}
	conns[ws] = struct{}{}
	return nil
}

func (h *Hub) Unsubscribe(sessionID string, ws *websocket.Conn) {
	h.mu.Lock()
	h.removeLocked(sessionID, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish sends v to every connection of sessionID, dropping connections
// that fail to accept it.
func (h *Hub) Publish(sessionID string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.subs[sessionID] {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			h.removeLocked(sessionID, ws)
		}
	}
}

// CloseSession disconnects every subscriber of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()

	for ws := range conns {
		_ = ws.Close()
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{Sessions: len(h.subs)}
	for _, conns := range h.subs {
		s.Clients += len(conns)
	}
	return s
}

func (h *Hub) removeLocked(sessionID string, ws *websocket.Conn) {
	conns, ok := h.subs[sessionID]
	if !ok {
		return
	}
	delete(conns, ws)
	if len(conns) == 0 {
		delete(h.subs, sessionID)
	}
}

func writeJSON(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(v)
}
