package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Pinger probes a connection's transport and returns once the peer answered.
type Pinger func(ctx context.Context) error

// Client is one authenticated connection as seen by the core layer.
type Client struct {
	ID     string
	UserID string
	// Outbound carries encoded frames to the transport write loop. It is
	// never closed; watch Done to learn that the client was terminated.
	Outbound chan []byte

	ping Pinger

	done        chan struct{}
	closeOnce   sync.Once
	closeCode   int
	closeReason string

	// guarded by Registry.mu
	rooms map[int64]struct{}
	alive bool
}

// NewClient constructs a client with an outbound queue of queueSize frames.
// An empty id is replaced by a random UUID.
func NewClient(id, userID string, queueSize int, ping Pinger) *Client {
	if id == "" {
		id = uuid.NewString()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Client{
		ID:       id,
		UserID:   userID,
		Outbound: make(chan []byte, queueSize),
		ping:     ping,
		done:     make(chan struct{}),
		rooms:    make(map[int64]struct{}),
	}
}

// Done is closed when the core decides the connection must be terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client terminated with a close code for the transport.
// Only the first call has an effect.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// CloseStatus returns the code and reason passed to Close. It is only
// meaningful after Done is closed.
func (c *Client) CloseStatus() (int, string) {
	return c.closeCode, c.closeReason
}

// send enqueues a frame without blocking. It reports false when the client is
// closed or its queue is full.
func (c *Client) send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Outbound <- frame:
		return true
	default:
		return false
	}
}
