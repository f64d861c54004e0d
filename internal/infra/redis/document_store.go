package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizbot-service/internal/domain"
)

// DocumentStore keeps uploaded PDF text per chat as a JSON value that expires after ttl.
type DocumentStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDocumentStore(client *redis.Client, ttl time.Duration) *DocumentStore {
	return &DocumentStore{client: client, ttl: ttl}
}

func (s *DocumentStore) SaveDocument(ctx context.Context, doc domain.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return s.client.Set(ctx, s.key(doc.ChatID), payload, s.ttl).Err()
}

func (s *DocumentStore) GetDocument(ctx context.Context, chatID string) (domain.Document, error) {
	payload, err := s.client.Get(ctx, s.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.Document{}, err
	}
	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, chatID string) error {
	n, err := s.client.Del(ctx, s.key(chatID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentStore) key(chatID string) string {
	return "chat:" + chatID + ":document"
}
