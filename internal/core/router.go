package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/metrics"
	"github.com/vovakirdan/wiredraw-server/internal/proto"
)

// Router fans a frame out to the current members of a room.
type Router struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewRouter creates a router reading membership from registry.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	return &Router{registry: registry, log: logger}
}

// Broadcast enqueues frame for every member of roomID except exclude, and
// returns how many recipients accepted it. Membership is read at call time.
// A recipient whose queue is full is closed so it reconnects and reloads
// the room; other recipients are unaffected.
func (r *Router) Broadcast(roomID int64, frame []byte, exclude *Client) int {
	delivered := 0
	for _, c := range r.registry.MembersOf(roomID) {
		if c == exclude {
			continue
		}
		if !c.send(frame) {
			metrics.BroadcastDropped.Inc()
			r.log.Debug().Str("client_id", c.ID).Int64("room_id", roomID).Msg("recipient not writable, dropping frame")
			c.Close(proto.CloseTryAgainLater, "send queue full")
			continue
		}
		delivered++
	}
	metrics.BroadcastDelivered.Add(float64(delivered))
	return delivered
}
