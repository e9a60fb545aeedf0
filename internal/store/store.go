package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownDriver is returned by callers selecting a backend that does not exist.
var ErrUnknownDriver = errors.New("unknown database driver")

// ShapeRecord is one durable drawing operation in a room's shape log.
// Records are created by chat frames and removed by erase reconciliation;
// they are never updated in place.
type ShapeRecord struct {
	ID        int64
	RoomID    int64
	UserID    string
	Message   string // serialized {"shape": {...}} payload, stored verbatim
	CreatedAt time.Time
}

// ShapeStore persists the per-room shape log.
type ShapeStore interface {
	// CreateShapeRecord appends a record and sets its ID and CreatedAt.
	CreateShapeRecord(ctx context.Context, rec *ShapeRecord) error

	// ListShapeRecords returns the full log for a room in ascending id order.
	ListShapeRecords(ctx context.Context, roomID int64) ([]*ShapeRecord, error)

	// ListRecentShapeRecords returns at most limit records, newest first.
	ListRecentShapeRecords(ctx context.Context, roomID int64, limit int) ([]*ShapeRecord, error)

	// DeleteShapeRecords removes the given records in one batch and reports
	// how many rows were deleted. Unknown ids are ignored.
	DeleteShapeRecords(ctx context.Context, ids []int64) (int64, error)
}

// Store aggregates the storage interfaces with lifecycle methods.
type Store interface {
	ShapeStore

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
