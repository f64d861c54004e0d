package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TopicLoader generates topic suggestions for a user on a cache miss.
type TopicLoader interface {
	LoadTopics(ctx context.Context, userID string) ([]string, error)
}

// TopicRepository caches topic suggestions in Redis (list per user) and falls back to a loader on cache miss.
// Topics are stored as: RPUSH topics:{userID} {topic}...
type TopicRepository struct {
	client *redis.Client
	loader TopicLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewTopicRepository(client *redis.Client, loader TopicLoader, ttl time.Duration) *TopicRepository {
	return &TopicRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TopicRepository) GetTopics(ctx context.Context, userID string) ([]string, error) {
	key := r.key(userID)

	topics, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err == nil && len(topics) > 0 {
		return topics, nil
	}

	result, err, _ := r.sf.Do(userID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		topics, err := r.client.LRange(ctx, key, 0, -1).Result()
		if err == nil && len(topics) > 0 {
			return topics, nil
		}

		topics, err = r.loader.LoadTopics(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(topics) == 0 {
			return topics, nil
		}

		values := make([]interface{}, len(topics))
		for i, t := range topics {
			values[i] = t
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

// Invalidate drops the cached suggestions of a user.
func (r *TopicRepository) Invalidate(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *TopicRepository) key(userID string) string {
	return "topics:" + userID
}

func (r *TopicRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
