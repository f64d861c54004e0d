package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

const defaultChatTitle = "New Chat"

// ChatStore persists chats. DeleteChat also removes the chat's messages.
type ChatStore interface {
	CreateChat(ctx context.Context, chat domain.Chat) error
	GetChat(ctx context.Context, chatID string) (domain.Chat, error)
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
	UpdateChat(ctx context.Context, chat domain.Chat) error
	DeleteChat(ctx context.Context, chatID string) error
}

// ChatService owns chats and gates every message operation on chat ownership.
type ChatService struct {
	chats      ChatStore
	messages   MessageStore
	documents  DocumentStore
	sessions   SessionRepository
	controller *QuizController
	now        func() time.Time
}

func NewChatService(chats ChatStore, messages MessageStore, documents DocumentStore, sessions SessionRepository, controller *QuizController) *ChatService {
	return &ChatService{
		chats:      chats,
		messages:   messages,
		documents:  documents,
		sessions:   sessions,
		controller: controller,
		now:        time.Now,
	}
}

// Create opens a new chat for userID.
func (s *ChatService) Create(ctx context.Context, userID, title string) (domain.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultChatTitle
	}
	now := s.now()
	chat := domain.Chat{
		ID:        domain.NewID(domain.PrefixChat),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return domain.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

// Get returns a chat owned by userID.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (domain.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	if chat.UserID != userID {
		return domain.Chat{}, domain.ErrForbidden
	}
	return chat, nil
}

// List returns the chats of userID, most recently updated first.
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.chats.ListChats(ctx, userID)
}

// Rename changes a chat title.
func (s *ChatService) Rename(ctx context.Context, userID, chatID, title string) (domain.Chat, error) {
	chat, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	if title = strings.TrimSpace(title); title != "" {
		chat.Title = title
	}
	chat.UpdatedAt = s.now()
	if err := s.chats.UpdateChat(ctx, chat); err != nil {
		return domain.Chat{}, fmt.Errorf("update chat: %w", err)
	}
	return chat, nil
}

// Delete removes a chat with its messages, document and coordination state.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.chats.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if err := s.documents.DeleteDocument(ctx, chatID); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		log.Printf("[ChatService.Delete] chat=%s drop document: %v", chatID, err)
	}
	if err := s.sessions.Drop(ctx, chatID); err != nil {
		log.Printf("[ChatService.Delete] chat=%s drop session: %v", chatID, err)
	}
	return nil
}

// Messages lists a chat's messages chronologically.
func (s *ChatService) Messages(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, chatID)
}

// Message returns one message if its chat belongs to userID.
func (s *ChatService) Message(ctx context.Context, userID, messageID string) (domain.Message, error) {
	m, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if _, err := s.Get(ctx, userID, m.ChatID); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// Send runs a user message through the quiz controller.
func (s *ChatService) Send(ctx context.Context, userID, chatID, content string) (Turn, error) {
	return s.SendOrdered(ctx, userID, chatID, content, nil)
}

// SendOrdered is Send with a callback fired once the user message is
// persisted, see QuizController.HandleMessageAccepted.
func (s *ChatService) SendOrdered(ctx context.Context, userID, chatID, content string, accepted func()) (Turn, error) {
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		if accepted != nil {
			accepted()
		}
		return Turn{}, err
	}
	return s.controller.HandleMessageAccepted(ctx, chatID, content, accepted)
}

// State returns the derived quiz state of a chat.
func (s *ChatService) State(ctx context.Context, userID, chatID string) (quiz.SessionState, error) {
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		return quiz.SessionState{}, err
	}
	return s.controller.State(ctx, chatID)
}

// AttachDocument stores extracted PDF text for later "quiz pdf" runs.
func (s *ChatService) AttachDocument(ctx context.Context, userID, chatID, filename, text string) (domain.Document, error) {
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		return domain.Document{}, err
	}
	doc := domain.Document{
		ChatID:     chatID,
		Filename:   filename,
		Text:       text,
		UploadedAt: s.now(),
	}
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	log.Printf("[ChatService.AttachDocument] chat=%s file=%q chars=%d", chatID, filename, len(text))
	return doc, nil
}
