package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/metrics"
	"github.com/vovakirdan/wiredraw-server/internal/proto"
	"github.com/vovakirdan/wiredraw-server/internal/store"
)

// Config tunes the hub.
type Config struct {
	// HeartbeatInterval is the period of the liveness sweep.
	HeartbeatInterval time.Duration
	// SendQueueSize bounds each client's outbound queue.
	SendQueueSize int
	// RoomIdleTimeout stops a room's worker after this long without work.
	RoomIdleTimeout time.Duration
	// StoreTimeout bounds each shape log operation.
	StoreTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		SendQueueSize:     64,
		RoomIdleTimeout:   time.Minute,
		StoreTimeout:      10 * time.Second,
	}
}

// Hub supervises connections: it registers them, dispatches their frames,
// runs the heartbeat and announces departures.
type Hub struct {
	cfg      Config
	registry *Registry
	router   *Router
	shapes   *ShapeLog
	seq      *Sequencer
	presence Presence
	log      *zerolog.Logger

	// ctx outlives individual connections so in-flight store calls finish
	// even if their sender disconnects.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub persisting to st. presence and logger may be nil.
func NewHub(st store.ShapeStore, cfg Config, presence Presence, logger *zerolog.Logger) *Hub {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.RoomIdleTimeout <= 0 {
		cfg.RoomIdleTimeout = def.RoomIdleTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if presence == nil {
		presence = noPresence{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()
	router := NewRouter(registry, logger)

	return &Hub{
		cfg:      cfg,
		registry: registry,
		router:   router,
		shapes:   NewShapeLog(st, router, logger),
		seq:      NewSequencer(ctx, cfg.RoomIdleTimeout),
		presence: presence,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry exposes the connection table for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run drives the heartbeat until ctx is cancelled, then stops room workers.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-ctx.Done():
			h.cancel()
			h.seq.Wait()
			return
		}
	}
}

// Connect registers an authenticated connection and returns its client.
func (h *Hub) Connect(userID string, ping Pinger) *Client {
	c := NewClient("", userID, h.cfg.SendQueueSize, ping)
	h.registry.Add(c)
	metrics.WsConnections.Inc()
	h.log.Info().Str("client_id", c.ID).Str("user_id", userID).Msg("client connected")
	return c
}

// Disconnect removes c and tells every room it watched that its user left.
// Calling it for an already removed client does nothing.
func (h *Hub) Disconnect(c *Client) {
	rooms, ok := h.registry.Remove(c)
	if !ok {
		return
	}
	metrics.WsConnections.Dec()
	h.log.Info().Str("client_id", c.ID).Str("user_id", c.UserID).Int("rooms", len(rooms)).Msg("client disconnected")
	h.announceDeparture(c, rooms)
}

// Reply sends an error frame to c alone.
func (h *Hub) Reply(c *Client, err *CoreError) {
	if !c.send(err.Frame()) {
		h.log.Debug().Str("client_id", c.ID).Str("code", err.Code).Msg("could not deliver error frame")
	}
}

// Handle validates one inbound frame from c and dispatches it. Invalid frames
// are answered with an error frame and otherwise ignored.
func (h *Hub) Handle(c *Client, raw []byte) {
	frame, err := proto.Decode(raw)
	if err != nil {
		metrics.FramesTotal.WithLabelValues("unknown", "invalid").Inc()
		h.log.Debug().Err(err).Str("client_id", c.ID).Msg("rejected frame")
		h.Reply(c, fromValidation(err))
		return
	}
	metrics.FramesTotal.WithLabelValues(frame.Type, "accepted").Inc()

	switch frame.Type {
	case proto.InboundTypeJoinRoom:
		h.join(c, frame.RoomID)
	case proto.InboundTypeLeaveRoom:
		h.leave(c, frame.RoomID)
	case proto.InboundTypeChat:
		h.chat(c, frame)
	case proto.InboundTypeErase:
		h.erase(c, frame)
	}
}

func (h *Hub) join(c *Client, roomID int64) {
	if !h.registry.JoinRoom(c, roomID) {
		return
	}
	userID := c.UserID
	h.submit(c, roomID, func() {
		h.router.Broadcast(roomID, proto.UserJoinedFrame(roomID, userID), c)
		if err := h.presence.Join(h.ctx, roomID, userID); err != nil {
			h.log.Warn().Err(err).Int64("room_id", roomID).Msg("presence join failed")
		}
	})
}

func (h *Hub) leave(c *Client, roomID int64) {
	if !h.registry.LeaveRoom(c, roomID) {
		return
	}
	h.submit(c, roomID, func() { h.userLeft(roomID, c.UserID) })
}

func (h *Hub) chat(c *Client, frame *proto.Frame) {
	roomID, message := frame.RoomID, frame.Message
	h.submit(c, roomID, func() {
		ctx, cancel := context.WithTimeout(h.ctx, h.cfg.StoreTimeout)
		defer cancel()

		if _, err := h.shapes.Append(ctx, roomID, c.UserID, message); err != nil {
			h.log.Error().Err(err).Str("client_id", c.ID).Int64("room_id", roomID).Msg("failed to persist shape")
			h.Reply(c, coreError(ErrCodePersistence, "failed to save shape"))
		}
	})
}

func (h *Hub) erase(c *Client, frame *proto.Frame) {
	roomID, descriptors, message := frame.RoomID, frame.Erase, frame.Message
	h.submit(c, roomID, func() {
		ctx, cancel := context.WithTimeout(h.ctx, h.cfg.StoreTimeout)
		defer cancel()

		if _, err := h.shapes.Erase(ctx, roomID, descriptors, message); err != nil {
			h.log.Error().Err(err).Str("client_id", c.ID).Int64("room_id", roomID).Msg("failed to erase shapes")
			h.Reply(c, coreError(ErrCodePersistence, "failed to erase shapes"))
		}
	})
}

// submit queues job on the room's sequence. sender, if set, is told when
// the hub is shutting down.
func (h *Hub) submit(sender *Client, roomID int64, job func()) {
	if h.seq.Submit(roomID, job) {
		return
	}
	if sender != nil {
		h.Reply(sender, coreError(ErrCodeUnavailable, ErrShuttingDown.Error()))
	}
}

func (h *Hub) announceDeparture(c *Client, rooms []int64) {
	for _, roomID := range rooms {
		roomID := roomID
		h.submit(nil, roomID, func() { h.userLeft(roomID, c.UserID) })
	}
}

func (h *Hub) userLeft(roomID int64, userID string) {
	h.router.Broadcast(roomID, proto.UserLeftFrame(roomID, userID), nil)
	if h.registry.HasUser(roomID, userID) {
		return
	}
	if err := h.presence.Leave(h.ctx, roomID, userID); err != nil {
		h.log.Warn().Err(err).Int64("room_id", roomID).Msg("presence leave failed")
	}
}

// sweep runs one heartbeat cycle: clients silent since the last cycle are
// terminated, the rest are probed.
func (h *Hub) sweep() {
	removed, probe := h.registry.Sweep()
	for _, d := range removed {
		metrics.LivenessSwept.Inc()
		metrics.WsConnections.Dec()
		h.log.Info().Str("client_id", d.Client.ID).Str("user_id", d.Client.UserID).Msg("liveness timeout")
		d.Client.Close(proto.CloseLivenessTimeout, "heartbeat timeout")
		// a busy room queue must not hold up the heartbeat
		go h.announceDeparture(d.Client, d.Rooms)
	}

	for _, c := range probe {
		go h.probe(c)
	}

	go h.refreshPresence()
}

func (h *Hub) probe(c *Client) {
	if c.ping == nil {
		return
	}
	ctx, cancel := context.WithTimeout(h.ctx, h.cfg.HeartbeatInterval)
	defer cancel()

	if err := c.ping(ctx); err != nil {
		h.log.Debug().Err(err).Str("client_id", c.ID).Msg("liveness probe failed")
		return
	}
	h.registry.MarkAlive(c)
}

func (h *Hub) refreshPresence() {
	for roomID, users := range h.registry.RoomUsers() {
		if err := h.presence.Refresh(h.ctx, roomID, users); err != nil {
			h.log.Warn().Err(err).Int64("room_id", roomID).Msg("presence refresh failed")
			return
		}
	}
}
