package memory

import (
	"context"
	"sort"
	"sync"

	"quizbot-service/internal/domain"
)

// Store keeps users, chats and messages in process memory. It backs the
// service when no database is configured and is the reference for the SQL stores.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string
	chats    map[string]domain.Chat
	messages map[string][]domain.Message
	index    map[string]string // message id -> chat id
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		chats:    make(map[string]domain.Chat),
		messages: make(map[string][]domain.Message),
		index:    make(map[string]string),
	}
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) CreateChat(_ context.Context, chat domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chat.ID] = chat
	return nil
}

func (s *Store) GetChat(_ context.Context, chatID string) (domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return chat, nil
}

func (s *Store) ListChats(_ context.Context, userID string) ([]domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chat, 0)
	for _, chat := range s.chats {
		if chat.UserID == userID {
			out = append(out, chat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateChat(_ context.Context, chat domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; !ok {
		return domain.ErrChatNotFound
	}
	s.chats[chat.ID] = chat
	return nil
}

func (s *Store) DeleteChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; !ok {
		return domain.ErrChatNotFound
	}
	for _, m := range s.messages[chatID] {
		delete(s.index, m.ID)
	}
	delete(s.messages, chatID)
	delete(s.chats, chatID)
	return nil
}

// RecentTitles returns the titles of a user's chats, most recently updated first.
func (s *Store) RecentTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	chats, _ := s.ListChats(ctx, userID)
	titles := make([]string, 0, len(chats))
	for _, chat := range chats {
		if limit > 0 && len(titles) == limit {
			break
		}
		titles = append(titles, chat.Title)
	}
	return titles, nil
}

// AppendMessage stores m at the end of its chat and touches the chat.
func (s *Store) AppendMessage(_ context.Context, m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[m.ChatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	s.messages[m.ChatID] = append(s.messages[m.ChatID], m)
	s.index[m.ID] = m.ChatID
	if m.Timestamp.After(chat.UpdatedAt) {
		chat.UpdatedAt = m.Timestamp
		s.chats[m.ChatID] = chat
	}
	return nil
}

// ListMessages returns a copy of the chat's messages in append order.
func (s *Store) ListMessages(_ context.Context, chatID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.chats[chatID]; !ok {
		return nil, domain.ErrChatNotFound
	}
	return append([]domain.Message(nil), s.messages[chatID]...), nil
}

func (s *Store) GetMessage(_ context.Context, messageID string) (domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chatID, ok := s.index[messageID]
	if !ok {
		return domain.Message{}, domain.ErrMessageNotFound
	}
	for _, m := range s.messages[chatID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return domain.Message{}, domain.ErrMessageNotFound
}
