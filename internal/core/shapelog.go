package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/metrics"
	"github.com/vovakirdan/wiredraw-server/internal/proto"
	"github.com/vovakirdan/wiredraw-server/internal/shape"
	"github.com/vovakirdan/wiredraw-server/internal/store"
)

// ShapeLog persists drawing operations and reconciles erase requests against
// the durable log. A broadcast only follows a committed store operation.
type ShapeLog struct {
	store  store.ShapeStore
	router *Router
	log    *zerolog.Logger
}

// NewShapeLog creates a shape log writing to st and broadcasting via router.
func NewShapeLog(st store.ShapeStore, router *Router, logger *zerolog.Logger) *ShapeLog {
	return &ShapeLog{store: st, router: router, log: logger}
}

// Append persists one validated chat payload and broadcasts it to the whole
// room, sender included.
func (l *ShapeLog) Append(ctx context.Context, roomID int64, userID, message string) (*store.ShapeRecord, error) {
	rec := &store.ShapeRecord{
		RoomID:  roomID,
		UserID:  userID,
		Message: message,
	}
	if err := l.store.CreateShapeRecord(ctx, rec); err != nil {
		metrics.PersistenceErrors.WithLabelValues("append").Inc()
		return nil, fmt.Errorf("append shape: %w", err)
	}
	metrics.ShapesAppended.Inc()

	l.router.Broadcast(roomID, proto.ChatFrame(roomID, message), nil)
	return rec, nil
}

// Erase deletes every record of roomID structurally equal to one of the
// descriptors, then broadcasts the erase whether or not anything matched.
// The log is re-read on every call so appends from other clients are seen.
func (l *ShapeLog) Erase(ctx context.Context, roomID int64, descriptors []shape.Shape, message string) (int64, error) {
	records, err := l.store.ListShapeRecords(ctx, roomID)
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues("erase_list").Inc()
		return 0, fmt.Errorf("load shape log: %w", err)
	}

	var deleted int64
	if ids := l.match(records, descriptors); len(ids) > 0 {
		deleted, err = l.store.DeleteShapeRecords(ctx, ids)
		if err != nil {
			metrics.PersistenceErrors.WithLabelValues("erase_delete").Inc()
			return 0, fmt.Errorf("delete shapes: %w", err)
		}
	}
	metrics.ShapesErased.Add(float64(deleted))

	l.log.Debug().
		Int64("room_id", roomID).
		Int("descriptors", len(descriptors)).
		Int("records", len(records)).
		Int64("deleted", deleted).
		Msg("erase reconciled")

	l.router.Broadcast(roomID, proto.EraseFrame(roomID, message), nil)
	return deleted, nil
}

type loggedShape struct {
	id    int64
	shape shape.Shape
}

// match returns the ids of records equal to any descriptor, each id once,
// in log order per descriptor. Records are bucketed by kind first.
func (l *ShapeLog) match(records []*store.ShapeRecord, descriptors []shape.Shape) []int64 {
	if len(descriptors) == 0 {
		return nil
	}

	byKind := make(map[shape.Kind][]loggedShape)
	for _, rec := range records {
		s, err := shape.ParseEnvelope(rec.Message)
		if err != nil {
			l.log.Warn().Err(err).Int64("record_id", rec.ID).Msg("skipping unparseable shape record")
			continue
		}
		byKind[s.Kind()] = append(byKind[s.Kind()], loggedShape{id: rec.ID, shape: s})
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, d := range descriptors {
		for _, candidate := range byKind[d.Kind()] {
			if _, dup := seen[candidate.id]; dup {
				continue
			}
			if shape.Equal(d, candidate.shape) {
				seen[candidate.id] = struct{}{}
				ids = append(ids, candidate.id)
			}
		}
	}
	return ids
}
