package http

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/auth"
	"github.com/vovakirdan/wiredraw-server/internal/config"
	"github.com/vovakirdan/wiredraw-server/internal/core"
	"github.com/vovakirdan/wiredraw-server/internal/store/sqlite"
)

const testSecret = "test-secret"

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	store *sqlite.SQLiteStore
	jwt   *auth.JWTConfig
}

type wireFrame struct {
	Type    string `json:"type"`
	RoomID  int64  `json:"roomId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(sqlite.Schema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = testSecret
	if mutate != nil {
		mutate(&cfg)
	}

	st := createTestStore(t)
	disabledLogger := zerolog.Nop()

	hub := core.NewHub(st, core.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		SendQueueSize:     cfg.SendQueueSize,
	}, nil, &disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	jwtCfg := &auth.JWTConfig{Secret: []byte(cfg.JWTSecret), TTL: time.Hour}
	server := NewServer(hub, auth.NewVerifier(jwtCfg), st, nil, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return &testEnv{ts: ts, hub: hub, store: st, jwt: jwtCfg}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()

	token, err := auth.IssueToken(e.jwt, userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) wsURL(query string) string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws" + query
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, userID string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL("?token="+e.token(t, userID)), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, v any) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, v); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// readFrame reads frames until one of type typ arrives.
func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) wireFrame {
	t.Helper()

	for {
		var f wireFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read %s frame: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

// readCloseStatus reads until the server closes the connection.
func readCloseStatus(t *testing.T, ctx context.Context, conn *websocket.Conn) websocket.StatusCode {
	t.Helper()

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return websocket.CloseStatus(err)
		}
	}
}
