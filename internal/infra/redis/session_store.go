package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionStore is a Redis implementation of app.SessionRepository so turns of
// one chat are serialized across service instances.
//   - chat:{id}:lock  SET NX PX holder token, released with a compare-and-delete script
//   - chat:{id}:epoch INCR on every stop, restart and generation
type SessionStore struct {
	client  *redis.Client
	lockTTL time.Duration
	retry   time.Duration
}

func NewSessionStore(client *redis.Client, lockTTL time.Duration) *SessionStore {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &SessionStore{
		client:  client,
		lockTTL: lockTTL,
		retry:   10 * time.Millisecond,
	}
}

// Lock spins on SET NX until it wins or ctx is done. The lock expires after
// lockTTL so a crashed holder cannot wedge a chat.
func (s *SessionStore) Lock(ctx context.Context, chatID string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := s.lockKey(chatID)
	wait := s.retry
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// best-effort: an expired lock is simply gone
			_ = releaseScript.Run(context.Background(), s.client, []string{key}, token).Err()
		})
	}, nil
}

func (s *SessionStore) Epoch(ctx context.Context, chatID string) (int64, error) {
	epoch, err := s.client.Get(ctx, s.epochKey(chatID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return epoch, err
}

func (s *SessionStore) Advance(ctx context.Context, chatID string) (int64, error) {
	return s.client.Incr(ctx, s.epochKey(chatID)).Result()
}

func (s *SessionStore) Drop(ctx context.Context, chatID string) error {
	return s.client.Del(ctx, s.lockKey(chatID), s.epochKey(chatID)).Err()
}

func (s *SessionStore) lockKey(chatID string) string {
	return "chat:" + chatID + ":lock"
}

func (s *SessionStore) epochKey(chatID string) string {
	return "chat:" + chatID + ":epoch"
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
