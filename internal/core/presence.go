package core

import "context"

// Presence mirrors room membership into an external tracker so other
// processes can see who is drawing where.
type Presence interface {
	Join(ctx context.Context, roomID int64, userID string) error
	Leave(ctx context.Context, roomID int64, userID string) error
	// Refresh replaces the tracked users of roomID and extends their lease.
	Refresh(ctx context.Context, roomID int64, userIDs []string) error
}

type noPresence struct{}

func (noPresence) Join(context.Context, int64, string) error      { return nil }
func (noPresence) Leave(context.Context, int64, string) error     { return nil }
func (noPresence) Refresh(context.Context, int64, []string) error { return nil }
