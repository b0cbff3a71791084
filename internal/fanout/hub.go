package fanout

import (
	"sync"

	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
)

// Hub keeps lot-keyed groups of connected clients. Delivery is best effort:
// a client whose send buffer is full misses the frame.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		groups:  make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to the lot's group. It reports false when c is already at its
// group limit.
func (h *Hub) Join(c *Client, lotID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined := h.members[c]
	if joined == nil {
		joined = make(map[string]struct{})
		h.members[c] = joined
	}
	if _, ok := joined[lotID]; ok {
		return true
	}
	if len(joined) >= maxGroupsPerClient {
		return false
	}
	joined[lotID] = struct{}{}
	g := h.groups[lotID]
	if g == nil {
		g = make(map[*Client]struct{})
		h.groups[lotID] = g
	}
	g[c] = struct{}{}
	return true
}

func (h *Hub) Leave(c *Client, lotID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, lotID)
}

func (h *Hub) leave(c *Client, lotID string) {
	if g := h.groups[lotID]; g != nil {
		delete(g, c)
		if len(g) == 0 {
			delete(h.groups, lotID)
		}
	}
	if joined := h.members[c]; joined != nil {
		delete(joined, lotID)
	}
}

// Remove drops c from every group it joined. After Remove returns no Publish
// will write to c.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for lotID := range h.members[c] {
		h.leave(c, lotID)
	}
	delete(h.members, c)
}

// Publish delivers frame to the lot's current members and returns how many
// accepted it.
func (h *Hub) Publish(lotID string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.groups[lotID] {
		select {
		case c.send <- frame:
			n++
		default:
			obs.FanoutDropped.Inc()
		}
	}
	return n
}

// Members returns the size of the lot's group.
func (h *Hub) Members(lotID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[lotID])
}
