package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wiredraw-server/internal/store"
	"github.com/vovakirdan/wiredraw-server/internal/store/sqlite"
)

type frame struct {
	Type    string `json:"type"`
	RoomID  int64  `json:"roomId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// mustFrame waits for the next frame of the given type on c, skipping others.
func mustFrame(t *testing.T, c *Client, typ string) frame {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-c.Outbound:
			var f frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("undecodable frame %q: %v", raw, err)
			}
			if f.Type == typ {
				return f
			}
		case <-deadline:
			t.Fatalf("expected %s frame for %s not received", typ, c.UserID)
			return frame{}
		}
	}
}

// expectSilence asserts nothing arrives on c for a short while.
func expectSilence(t *testing.T, c *Client) {
	t.Helper()

	select {
	case raw := <-c.Outbound:
		t.Fatalf("unexpected frame for %s: %s", c.UserID, raw)
	case <-time.After(100 * time.Millisecond):
	}
}

// expectNoFrame asserts no frame of type typ arrives on c for a short while.
func expectNoFrame(t *testing.T, c *Client, typ string) {
	t.Helper()

	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case raw := <-c.Outbound:
			var f frame
			if err := json.Unmarshal(raw, &f); err == nil && f.Type == typ {
				t.Fatalf("unexpected %s frame for %s: %s", typ, c.UserID, raw)
			}
		case <-deadline:
			return
		}
	}
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	s, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(sqlite.Schema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestHub(t *testing.T, st store.ShapeStore, cfg Config) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(st, cfg, nil, nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func rect(id string, x float64) string {
	return `{"shape":{"type":"rectangle","id":"` + id + `","x":` + jsonNum(x) + `,"y":1,"width":5,"height":5}}`
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

var errStoreDown = errors.New("store down")

// failingStore fails every write and counts calls.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *failingStore) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *failingStore) CreateShapeRecord(context.Context, *store.ShapeRecord) error {
	s.hit()
	return errStoreDown
}

func (s *failingStore) ListShapeRecords(context.Context, int64) ([]*store.ShapeRecord, error) {
	s.hit()
	return nil, errStoreDown
}

func (s *failingStore) ListRecentShapeRecords(context.Context, int64, int) ([]*store.ShapeRecord, error) {
	s.hit()
	return nil, errStoreDown
}

func (s *failingStore) DeleteShapeRecords(context.Context, []int64) (int64, error) {
	s.hit()
	return 0, errStoreDown
}

// stalledStore never completes a write until its context ends.
type stalledStore struct{}

func (stalledStore) CreateShapeRecord(ctx context.Context, _ *store.ShapeRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledStore) ListShapeRecords(context.Context, int64) ([]*store.ShapeRecord, error) {
	return nil, nil
}

func (stalledStore) ListRecentShapeRecords(context.Context, int64, int) ([]*store.ShapeRecord, error) {
	return nil, nil
}

func (stalledStore) DeleteShapeRecords(context.Context, []int64) (int64, error) {
	return 0, nil
}
