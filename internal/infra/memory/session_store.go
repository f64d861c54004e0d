package memory

import (
	"context"
	"sync"
)

// SessionStore is an in-memory implementation of app.SessionRepository: one
// binary semaphore and one generation epoch per chat.
type SessionStore struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	sem   chan struct{}
	epoch int64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		rooms: make(map[string]*room),
	}
}

func (s *SessionStore) getOrCreate(chatID string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[chatID]; ok {
		return r
	}
	r := &room{sem: make(chan struct{}, 1)}
	s.rooms[chatID] = r
	return r
}

// Lock blocks until the chat is free or ctx is done.
func (s *SessionStore) Lock(ctx context.Context, chatID string) (func(), error) {
	r := s.getOrCreate(chatID)
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-r.sem })
	}, nil
}

func (s *SessionStore) Epoch(_ context.Context, chatID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[chatID]; ok {
		return r.epoch, nil
	}
	return 0, nil
}

func (s *SessionStore) Advance(_ context.Context, chatID string) (int64, error) {
	r := s.getOrCreate(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	r.epoch++
	return r.epoch, nil
}

// Drop forgets a chat; used when the chat is deleted.
func (s *SessionStore) Drop(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, chatID)
	return nil
}
