package redis

import (
	"context"
	"testing"
	"time"
)

func TestTopicRepositoryCachesInRedis(t *testing.T) {
	mr, client := newMiniredis(t)
	loader := &countingLoader{topics: []string{"Go", "Rust", "Python Programming"}}
	repo := NewTopicRepository(client, loader, time.Minute)

	topics, err := repo.GetTopics(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get topics: %v", err)
	}
	if loader.calls != 1 || len(topics) != 3 {
		t.Fatalf("expected loader called once, got %d calls, topics %v", loader.calls, topics)
	}
	if !mr.Exists("topics:user-1") {
		t.Fatalf("expected redis list to be written")
	}

	// Second call should hit cache, loader not incremented.
	topics, _ = repo.GetTopics(context.Background(), "user-1")
	if loader.calls != 1 || topics[1] != "Rust" {
		t.Fatalf("expected cache hit in order, loader calls=%d topics=%v", loader.calls, topics)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetTopics(context.Background(), "user-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), "user-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetTopics(context.Background(), "user-1")
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	topics []string
	calls  int
}

func (l *countingLoader) LoadTopics(context.Context, string) ([]string, error) {
	l.calls++
	return l.topics, nil
}
