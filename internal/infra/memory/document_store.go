package memory

import (
	"context"
	"sync"

	"quizbot-service/internal/domain"
)

// DocumentStore keeps uploaded PDF text per chat in memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

func (s *DocumentStore) SaveDocument(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ChatID] = doc
	return nil
}

func (s *DocumentStore) GetDocument(_ context.Context, chatID string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[chatID]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentStore) DeleteDocument(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[chatID]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.docs, chatID)
	return nil
}
