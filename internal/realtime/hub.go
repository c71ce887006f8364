package realtime

import (
	"sync"
)

// Client is one connected watcher. The ws handler owns the network side.
type Client interface {
	// Send delivers message and reports whether the write succeeded.
	Send(message []byte) bool
	Close()
}

// Hub fans cache events out to the clients watching each tag.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[Client]struct{})}
}

// Register adds client as a watcher of tag.
func (h *Hub) Register(tag string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[tag]
	if !ok {
		set = make(map[Client]struct{})
		h.watchers[tag] = set
	}
	set[client] = struct{}{}
}

// Unregister removes client from tag and drops the tag once nobody watches it.
func (h *Hub) Unregister(tag string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[tag]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.watchers, tag)
	}
}

// Broadcast sends message to the watchers of tag and returns how many
// accepted it. Clients whose write failed are left for their handler to
// unregister.
func (h *Hub) Broadcast(tag string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return send(h.watchers[tag], message)
}

// BroadcastAll sends message to every watcher of every tag.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, set := range h.watchers {
		sent += send(set, message)
	}
	return sent
}

// Count returns the number of watchers of tag.
func (h *Hub) Count(tag string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[tag])
}

func send(set map[Client]struct{}, message []byte) int {
	n := 0
	for c := range set {
		if c.Send(message) {
			n++
		}
	}
	return n
}
