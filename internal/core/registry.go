package core

import (
	"sort"
	"sync"
)

// Departure describes a client removed from the registry and the rooms it
// was watching at that moment.
type Departure struct {
	Client *Client
	Rooms  []int64
}

// Registry is the table of live connections and the rooms they watch.
// All mutations happen under one mutex and never block on I/O.
type Registry struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[int64]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[int64]*Room),
	}
}

// Add registers a client. A new client counts as alive until the next sweep.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = struct{}{}
	c.alive = true
}

// Remove unregisters a client and returns the rooms it was watching.
// The second return is false if the client was not registered.
func (r *Registry) Remove(c *Client) ([]int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(c)
}

func (r *Registry) removeLocked(c *Client) ([]int64, bool) {
	if _, ok := r.clients[c]; !ok {
		return nil, false
	}
	delete(r.clients, c)

	rooms := sortedRooms(c.rooms)
	for _, id := range rooms {
		r.detachLocked(c, id)
	}
	return rooms, true
}

// JoinRoom adds roomID to the client's watched set. It returns false if the
// client already watches the room or is not registered.
func (r *Registry) JoinRoom(c *Client, roomID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return false
	}
	if _, watching := c.rooms[roomID]; watching {
		return false
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		r.rooms[roomID] = room
	}
	room.AddClient(c)
	c.rooms[roomID] = struct{}{}
	return true
}

// LeaveRoom removes roomID from the client's watched set. It returns false if
// the client was not watching it.
func (r *Registry) LeaveRoom(c *Client, roomID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, watching := c.rooms[roomID]; !watching {
		return false
	}
	r.detachLocked(c, roomID)
	return true
}

func (r *Registry) detachLocked(c *Client, roomID int64) {
	delete(c.rooms, roomID)
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	room.RemoveClient(c)
	if room.Empty() {
		delete(r.rooms, roomID)
	}
}

// RoomsOf returns the rooms the client watches, sorted.
func (r *Registry) RoomsOf(c *Client) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sortedRooms(c.rooms)
}

// MembersOf returns the clients currently watching roomID.
func (r *Registry) MembersOf(roomID int64) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return room.Members()
}

// UsersOf returns the distinct user ids watching roomID.
func (r *Registry) UsersOf(roomID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return []string{}
	}
	return room.UserIDs()
}

// HasUser reports whether any connection of userID still watches roomID.
func (r *Registry) HasUser(roomID int64, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	for c := range room.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// RoomUsers returns the distinct users of every non-empty room.
func (r *Registry) RoomUsers() map[int64][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64][]string, len(r.rooms))
	for id, room := range r.rooms {
		out[id] = room.UserIDs()
	}
	return out
}

// MarkAlive records a liveness response. Unknown clients are ignored.
func (r *Registry) MarkAlive(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; ok {
		c.alive = true
	}
}

// Sweep removes every client not marked alive since the previous sweep and
// clears the flag on the rest. The survivors are returned for probing.
func (r *Registry) Sweep() (removed []Departure, probe []*Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		if c.alive {
			c.alive = false
			probe = append(probe, c)
			continue
		}
		rooms, _ := r.removeLocked(c)
		removed = append(removed, Departure{Client: c, Rooms: rooms})
	}
	return removed, probe
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}

func sortedRooms(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
