package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wiredraw-server/internal/store"
)

// Schema is the shape log table layout. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS shape_records (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    INTEGER NOT NULL,
	user_id    TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_shape_records_room ON shape_records(room_id, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies Schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateShapeRecord appends a record to the room's log.
func (s *SQLiteStore) CreateShapeRecord(ctx context.Context, rec *store.ShapeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO shape_records (room_id, user_id, message, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, rec.RoomID, rec.UserID, rec.Message, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert shape record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListShapeRecords returns the full log for a room, oldest first.
func (s *SQLiteStore) ListShapeRecords(ctx context.Context, roomID int64) ([]*store.ShapeRecord, error) {
	query := `
		SELECT id, room_id, user_id, message, created_at
		FROM shape_records
		WHERE room_id = ?
		ORDER BY id ASC
	`
	return s.queryRecords(ctx, query, roomID)
}

// ListRecentShapeRecords returns up to limit records, newest first.
func (s *SQLiteStore) ListRecentShapeRecords(ctx context.Context, roomID int64, limit int) ([]*store.ShapeRecord, error) {
	query := `
		SELECT id, room_id, user_id, message, created_at
		FROM shape_records
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return s.queryRecords(ctx, query, roomID, limit)
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*store.ShapeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shape records: %w", err)
	}
	defer rows.Close()

	var records []*store.ShapeRecord
	for rows.Next() {
		var rec store.ShapeRecord
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.UserID, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shape record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// deleteChunkSize keeps each statement under SQLite's bound parameter limit.
const deleteChunkSize = 500

// DeleteShapeRecords removes records by id. Large batches are split into
// several statements inside one transaction, so the delete commits as a whole.
func (s *SQLiteStore) DeleteShapeRecords(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var total int64
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		query := `DELETE FROM shape_records WHERE id IN (` + placeholders + `)`
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("delete shape records: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return total, nil
}
