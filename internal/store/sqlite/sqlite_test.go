package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/vovakirdan/wiredraw-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndListShapeRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, msg := range []string{"a", "b", "c"} {
		rec := &store.ShapeRecord{RoomID: 7, UserID: "alice", Message: msg}
		if err := s.CreateShapeRecord(ctx, rec); err != nil {
			t.Fatalf("create record %d: %v", i, err)
		}
		if rec.ID == 0 {
			t.Fatalf("expected id to be assigned")
		}
	}
	if err := s.CreateShapeRecord(ctx, &store.ShapeRecord{RoomID: 8, UserID: "bob", Message: "other"}); err != nil {
		t.Fatalf("create record in other room: %v", err)
	}

	records, err := s.ListShapeRecords(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i].Message != want || records[i].UserID != "alice" || records[i].RoomID != 7 {
			t.Errorf("record %d: unexpected %+v", i, records[i])
		}
	}

	recent, err := s.ListRecentShapeRecords(ctx, 7, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Message != "c" || recent[1].Message != "b" {
		t.Fatalf("unexpected recent records: %+v", recent)
	}
}

func TestDeleteShapeRecordsBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, msg := range []string{"a", "b", "c"} {
		rec := &store.ShapeRecord{RoomID: 1, UserID: "u", Message: msg}
		if err := s.CreateShapeRecord(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	n, err := s.DeleteShapeRecords(ctx, []int64{ids[0], ids[2], 9999})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	records, err := s.ListShapeRecords(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Message != "b" {
		t.Fatalf("unexpected remaining records: %+v", records)
	}

	if n, err := s.DeleteShapeRecords(ctx, nil); err != nil || n != 0 {
		t.Fatalf("expected empty delete to be a no-op, got %d %v", n, err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestDeleteShapeRecordsAboveParameterLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const total = 2*deleteChunkSize + 200
	ids := make([]int64, 0, total)
	for i := 0; i < total; i++ {
		rec := &store.ShapeRecord{RoomID: 3, UserID: "alice", Message: "m"}
		if err := s.CreateShapeRecord(ctx, rec); err != nil {
			t.Fatalf("create record %d: %v", i, err)
		}
		ids = append(ids, rec.ID)
	}
	keep := &store.ShapeRecord{RoomID: 3, UserID: "bob", Message: "keep"}
	if err := s.CreateShapeRecord(ctx, keep); err != nil {
		t.Fatalf("create kept record: %v", err)
	}

	n, err := s.DeleteShapeRecords(ctx, append(ids, 999999))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != total {
		t.Fatalf("expected %d deleted, got %d", total, n)
	}

	records, err := s.ListShapeRecords(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != keep.ID {
		t.Fatalf("unexpected remaining records: %+v", records)
	}
}
