package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/core"
	"github.com/vovakirdan/wiredraw-server/internal/store"
)

// ShapeHandlers serves read-only views of a room: its shape history and the
// users currently drawing in it.
type ShapeHandlers struct {
	store    store.ShapeStore
	registry *core.Registry
	roster   Roster
	limit    int
	log      *zerolog.Logger
}

// NewShapeHandlers creates shape handlers. roster may be nil.
func NewShapeHandlers(st store.ShapeStore, registry *core.Registry, roster Roster, limit int, logger *zerolog.Logger) *ShapeHandlers {
	if limit <= 0 {
		limit = 1000
	}
	return &ShapeHandlers{
		store:    st,
		registry: registry,
		roster:   roster,
		limit:    limit,
		log:      logger,
	}
}

// ShapeRecordResponse represents one shape log entry in API responses.
type ShapeRecordResponse struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"roomId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

// ShapeHistoryResponse wraps the shape history of a room.
type ShapeHistoryResponse struct {
	Messages []ShapeRecordResponse `json:"messages"`
}

// PresenceResponse lists the users present in a room.
type PresenceResponse struct {
	RoomID int64    `json:"roomId"`
	Users  []string `json:"users"`
}

// ListShapes returns the most recent shape records, newest first.
// GET /api/rooms/:roomId/shapes
func (h *ShapeHandlers) ListShapes(c *gin.Context) {
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	records, err := h.store.ListRecentShapeRecords(c.Request.Context(), roomID, h.limit)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to list shapes")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := ShapeHistoryResponse{Messages: make([]ShapeRecordResponse, 0, len(records))}
	for _, rec := range records {
		response.Messages = append(response.Messages, ShapeRecordResponse{
			ID:        rec.ID,
			RoomID:    rec.RoomID,
			UserID:    rec.UserID,
			Message:   rec.Message,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	h.log.Debug().Int64("room_id", roomID).Int("records", len(records)).Msg("shapes listed")
	c.JSON(http.StatusOK, response)
}

// Presence returns the users watching a room.
// GET /api/rooms/:roomId/presence
func (h *ShapeHandlers) Presence(c *gin.Context) {
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	if h.roster == nil {
		c.JSON(http.StatusOK, PresenceResponse{RoomID: roomID, Users: h.registry.UsersOf(roomID)})
		return
	}

	users, err := h.roster.Members(c.Request.Context(), roomID)
	if err != nil {
		h.log.Warn().Err(err).Int64("room_id", roomID).Msg("presence lookup failed, using local registry")
		users = h.registry.UsersOf(roomID)
	}
	c.JSON(http.StatusOK, PresenceResponse{RoomID: roomID, Users: users})
}

func (h *ShapeHandlers) roomID(c *gin.Context) (int64, bool) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return 0, false
	}
	return roomID, true
}
