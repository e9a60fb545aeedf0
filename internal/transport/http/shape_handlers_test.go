package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/wiredraw-server/internal/store"
)

func TestListShapesRequiresAuth(t *testing.T) {
	env := startTestServer(t, nil)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"bad token", "Bearer nope"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/1/shapes", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp := httptest.NewRecorder()
		env.ts.Config.Handler.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, resp.Code)
		}
	}
}

func TestListShapesNewestFirst(t *testing.T) {
	env := startTestServer(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf(`{"shape":{"type":"circle","centreX":%d,"centreY":0,"radius":1}}`, i)
		if err := env.store.CreateShapeRecord(ctx, &store.ShapeRecord{RoomID: 5, UserID: "alice", Message: msg}); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/5/shapes", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "bob"))
	resp := httptest.NewRecorder()
	env.ts.Config.Handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body ShapeHistoryResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Messages) != 3 {
		t.Fatalf("expected 3 records, got %d", len(body.Messages))
	}
	if body.Messages[0].ID < body.Messages[2].ID {
		t.Fatalf("records not newest first: %+v", body.Messages)
	}
	if body.Messages[0].RoomID != 5 || body.Messages[0].UserID != "alice" {
		t.Fatalf("unexpected record: %+v", body.Messages[0])
	}
	if _, err := time.Parse(time.RFC3339, body.Messages[0].CreatedAt); err != nil {
		t.Fatalf("bad createdAt %q: %v", body.Messages[0].CreatedAt, err)
	}
}

func TestListShapesRejectsBadRoomID(t *testing.T) {
	env := startTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/abc/shapes", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "bob"))
	resp := httptest.NewRecorder()
	env.ts.Config.Handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPresenceFromRegistry(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(t, ctx, "alice")
	connB := env.dial(t, ctx, "bob")
	send(t, ctx, connB, map[string]any{"type": "join_room", "roomId": 9})
	send(t, ctx, connA, map[string]any{"type": "join_room", "roomId": 9})
	readFrame(t, ctx, connB, "user_joined")

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/9/presence", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "carol"))
	resp := httptest.NewRecorder()
	env.ts.Config.Handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body PresenceResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.RoomID != 9 || len(body.Users) != 2 || body.Users[0] != "alice" || body.Users[1] != "bob" {
		t.Fatalf("unexpected presence: %+v", body)
	}
}
