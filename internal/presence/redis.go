package presence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL is how long a room's member set survives without a refresh.
	TTL time.Duration
}

// Tracker keeps one Redis set per room holding the ids of users drawing in it.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTracker connects to Redis and verifies the connection.
func NewTracker(ctx context.Context, opts Options) (*Tracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Tracker{client: client, ttl: ttl}, nil
}

func roomKey(roomID int64) string {
	return fmt.Sprintf("wiredraw:presence:room:%d", roomID)
}

// Join adds userID to the room set.
func (t *Tracker) Join(ctx context.Context, roomID int64, userID string) error {
	key := roomKey(roomID)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, userID)
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	return err
}

// Leave removes userID from the room set.
func (t *Tracker) Leave(ctx context.Context, roomID int64, userID string) error {
	return t.client.SRem(ctx, roomKey(roomID), userID).Err()
}

// Refresh replaces the room set with userIDs and renews its TTL.
func (t *Tracker) Refresh(ctx context.Context, roomID int64, userIDs []string) error {
	key := roomKey(roomID)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(userIDs) == 0 {
			return nil
		}
		members := make([]interface{}, len(userIDs))
		for i, id := range userIDs {
			members[i] = id
		}
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	return err
}

// Members returns the users tracked for roomID, sorted.
func (t *Tracker) Members(ctx context.Context, roomID int64) ([]string, error) {
	users, err := t.client.SMembers(ctx, roomKey(roomID)).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}

// Close releases the connection pool.
func (t *Tracker) Close() error {
	return t.client.Close()
}
