package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vovakirdan/wiredraw-server/internal/store"
)

const connectAttempts = 10

type shapeRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	RoomID    int64     `gorm:"not null;index:idx_shape_records_room"`
	UserID    string    `gorm:"size:128;not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (shapeRecord) TableName() string {
	return "shape_records"
}

// PostgresStore implements store.Store on top of gorm.
type PostgresStore struct {
	db *gorm.DB
}

// New connects to Postgres, retrying while the database container starts.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			sqlDB, dbErr := gdb.DB()
			if dbErr == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return &PostgresStore{db: gdb}, nil
			}
			err = dbErr
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(500+i*200) * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("connect postgres: %w", lastErr)
}

// Migrate creates the shape_records table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&shapeRecord{})
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateShapeRecord appends a record to the room's log.
func (s *PostgresStore) CreateShapeRecord(ctx context.Context, rec *store.ShapeRecord) error {
	row := shapeRecord{
		RoomID:    rec.RoomID,
		UserID:    rec.UserID,
		Message:   rec.Message,
		CreatedAt: rec.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert shape record: %w", err)
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return nil
}

// ListShapeRecords returns the full log for a room, oldest first.
func (s *PostgresStore) ListShapeRecords(ctx context.Context, roomID int64) ([]*store.ShapeRecord, error) {
	var rows []shapeRecord
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query shape records: %w", err)
	}
	return toRecords(rows), nil
}

// ListRecentShapeRecords returns up to limit records, newest first.
func (s *PostgresStore) ListRecentShapeRecords(ctx context.Context, roomID int64, limit int) ([]*store.ShapeRecord, error) {
	var rows []shapeRecord
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query shape records: %w", err)
	}
	return toRecords(rows), nil
}

// DeleteShapeRecords removes records by id in a single statement.
func (s *PostgresStore) DeleteShapeRecords(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&shapeRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete shape records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func toRecords(rows []shapeRecord) []*store.ShapeRecord {
	out := make([]*store.ShapeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, &store.ShapeRecord{
			ID:        r.ID,
			RoomID:    r.RoomID,
			UserID:    r.UserID,
			Message:   r.Message,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
