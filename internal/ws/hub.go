// Package ws is the transport substrate: it owns the live websocket
// connections and room membership, and exposes the emit/join/leave/broadcast
// contract the coordinator consumes.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/camelgame/backend/pkg/types"
)

type client struct {
	id   string
	send chan []byte
}

type Hub struct {
	mu      sync.RWMutex
	log     *zap.Logger
	origins []string
	conns   map[string]*client
	rooms   map[string]map[string]bool
}

func NewHub(log *zap.Logger, origins []string) *Hub {
	return &Hub{
		log:     log,
		origins: origins,
		conns:   make(map[string]*client),
		rooms:   make(map[string]map[string]bool),
	}
}

func (h *Hub) register(id string) *client {
	cl := &client{id: id, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.conns[id] = cl
	h.mu.Unlock()
	return cl
}

// unregister removes the connection from every map. The send channel is
// left open: the writer goroutine exits on its context, and a late Send
// to a removed id is simply dropped at lookup.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	for room, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) encode(event string, payload any) []byte {
	data, err := json.Marshal(types.Envelope{Type: event, Payload: payload})
	if err != nil {
		h.log.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return nil
	}
	return data
}

// push is fire-and-forget: a client whose outbox is full just misses the
// message rather than stalling the sender.
func (h *Hub) push(cl *client, data []byte) {
	select {
	case cl.send <- data:
	default:
		h.log.Debug("dropping message for slow client", zap.String("conn", cl.id))
	}
}

func (h *Hub) Send(connID, event string, payload any) {
	data := h.encode(event, payload)
	if data == nil {
		return
	}
	h.mu.RLock()
	cl, ok := h.conns[connID]
	h.mu.RUnlock()
	if ok {
		h.push(cl, data)
	}
}

func (h *Hub) BroadcastToRoom(roomID, event string, payload any, excludeConnID string) {
	data := h.encode(event, payload)
	if data == nil {
		return
	}
	h.mu.RLock()
	for id := range h.rooms[roomID] {
		if id == excludeConnID {
			continue
		}
		if cl, ok := h.conns[id]; ok {
			h.push(cl, data)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) BroadcastToAll(event string, payload any) {
	data := h.encode(event, payload)
	if data == nil {
		return
	}
	h.mu.RLock()
	for _, cl := range h.conns {
		h.push(cl, data)
	}
	h.mu.RUnlock()
}

func (h *Hub) JoinRoom(connID, roomID string) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][connID] = true
	h.mu.Unlock()
}

func (h *Hub) LeaveRoom(connID, roomID string) {
	h.mu.Lock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}
