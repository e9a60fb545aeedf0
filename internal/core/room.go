package core

import "sort"

// Room groups clients watching the same canvas.
type Room struct {
	ID      int64
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(id int64) *Room {
	return &Room{
		ID:      id,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Members returns a snapshot of the clients in the room.
func (r *Room) Members() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// UserIDs returns the distinct user ids watching the room, sorted.
func (r *Room) UserIDs() []string {
	seen := make(map[string]struct{}, len(r.clients))
	out := make([]string, 0, len(r.clients))
	for c := range r.clients {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	sort.Strings(out)
	return out
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
