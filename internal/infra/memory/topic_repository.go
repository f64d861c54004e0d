package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TopicLoader generates topic suggestions for a user on a cache miss.
type TopicLoader interface {
	LoadTopics(ctx context.Context, userID string) ([]string, error)
}

// TopicRepository caches topic suggestions per user with TTL to avoid repeated oracle calls.
type TopicRepository struct {
	loader TopicLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedTopics
}

type cachedTopics struct {
	topics    []string
	expiresAt time.Time
}

func NewTopicRepository(loader TopicLoader, ttl time.Duration) *TopicRepository {
	return &TopicRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTopics),
	}
}

func (r *TopicRepository) GetTopics(ctx context.Context, userID string) ([]string, error) {
	if topics, ok := r.lookup(userID); ok {
		return topics, nil
	}

	result, err, _ := r.sf.Do(userID, func() (interface{}, error) {
		if topics, ok := r.lookup(userID); ok {
			return topics, nil
		}

		topics, err := r.loader.LoadTopics(ctx, userID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[userID] = cachedTopics{
			topics:    topics,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

// Invalidate drops the cached suggestions of a user.
func (r *TopicRepository) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

func (r *TopicRepository) lookup(userID string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[userID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return append([]string(nil), entry.topics...), true
}

func (r *TopicRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
