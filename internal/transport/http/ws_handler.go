package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/auth"
	"github.com/vovakirdan/wiredraw-server/internal/config"
	"github.com/vovakirdan/wiredraw-server/internal/core"
	"github.com/vovakirdan/wiredraw-server/internal/metrics"
	"github.com/vovakirdan/wiredraw-server/internal/proto"
)

const writeTimeout = 10 * time.Second

var errTerminated = errors.New("connection terminated by hub")

// WSHandler upgrades HTTP connections, authenticates them and bridges them
// to core.Client.
type WSHandler struct {
	hub      *core.Hub
	verifier *auth.Verifier
	cfg      *config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, verifier *auth.Verifier, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, verifier: verifier, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.cfg.AllowedOrigins,
		InsecureSkipVerify: len(h.cfg.AllowedOrigins) == 0,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	userID, ok := h.authenticate(conn, r)
	if !ok {
		return
	}
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := h.hub.Connect(userID, func(ctx context.Context) error {
		return conn.Ping(ctx)
	})
	defer h.hub.Disconnect(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	limiter := newRateLimiter(h.cfg.MessagesPerMinute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	if errors.Is(err, errTerminated) {
		// close before cancelling so the read loop can complete the handshake
		code, reason := client.CloseStatus()
		h.log.Info().Str("client_id", client.ID).Int("code", code).Str("reason", reason).Msg("closing terminated connection")
		conn.Close(websocket.StatusCode(code), reason)
		cancel()
		<-errCh
		return
	}
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// authenticate verifies the credential presented with the upgrade request.
// On failure the connection is closed with an application close code and no
// per-connection state is created.
func (h *WSHandler) authenticate(conn *websocket.Conn, r *stdhttp.Request) (string, bool) {
	token := tokenFromRequest(r)
	if token == "" {
		metrics.WsRejected.WithLabelValues("missing_token").Inc()
		h.log.Debug().Str("remote", r.RemoteAddr).Msg("ws connection without token")
		conn.Close(websocket.StatusCode(proto.CloseMissingToken), "missing token")
		return "", false
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		metrics.WsRejected.WithLabelValues("auth_failed").Inc()
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws authentication failed")
		conn.Close(websocket.StatusCode(proto.CloseAuthFailed), "authentication failed")
		return "", false
	}
	return userID, true
}

// tokenFromRequest reads the credential from the "token" query parameter,
// falling back to an Authorization bearer header.
func tokenFromRequest(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ""
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			metrics.FramesTotal.WithLabelValues("unknown", "rate_limited").Inc()
			h.hub.Reply(client, &core.CoreError{Code: core.ErrCodeRateLimited, Message: "rate limit exceeded"})
			continue
		}
		h.hub.Handle(client, data)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case frame := <-client.Outbound:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("write ws frame")
				return err
			}
		case <-client.Done():
			return errTerminated
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
