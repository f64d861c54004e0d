package app_test

import (
	"context"
	"errors"
	"testing"

	"quizbot-service/internal/app"
	"quizbot-service/internal/domain"
	"quizbot-service/internal/infra/memory"
	"quizbot-service/internal/quiz"
)

func newChatService() (*app.ChatService, *memory.DocumentStore) {
	store := memory.NewStore()
	docs := memory.NewDocumentStore()
	sessions := memory.NewSessionStore()
	ctrl := app.NewQuizController(store, sessions, newScriptedOracle(), docs, app.NewHub(), app.ControllerOptions{})
	return app.NewChatService(store, store, docs, sessions, ctrl), docs
}

func TestChatServiceOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChatService()

	chat, err := svc.Create(ctx, "alice", "  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if chat.Title != "New Chat" || !chat.IsActive {
		t.Fatalf("unexpected defaults %+v", chat)
	}

	if _, err := svc.Get(ctx, "bob", chat.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Send(ctx, "bob", chat.ID, "quiz Go"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden send, got %v", err)
	}
	if _, err := svc.Get(ctx, "alice", "chat_missing"); !errors.Is(err, domain.ErrChatNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	turn, err := svc.Send(ctx, "alice", chat.ID, "quiz Go")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Message(ctx, "bob", turn.Replies[0].ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden message read, got %v", err)
	}
	m, err := svc.Message(ctx, "alice", turn.Replies[0].ID)
	if err != nil || quiz.Classify(m).Kind != quiz.KindQuestion {
		t.Fatalf("expected stored question, got %+v %v", m, err)
	}
}

func TestChatServiceRenameListDelete(t *testing.T) {
	ctx := context.Background()
	svc, docs := newChatService()

	first, _ := svc.Create(ctx, "alice", "First")
	second, _ := svc.Create(ctx, "alice", "Second")
	if _, err := svc.Send(ctx, "alice", first.ID, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	chats, _ := svc.List(ctx, "alice")
	if len(chats) != 2 || chats[0].ID != first.ID {
		t.Fatalf("chat with the latest message must come first: %+v", chats)
	}

	renamed, err := svc.Rename(ctx, "alice", second.ID, "Biology")
	if err != nil || renamed.Title != "Biology" {
		t.Fatalf("rename: %+v %v", renamed, err)
	}

	if _, err := svc.AttachDocument(ctx, "alice", first.ID, "notes.pdf", "text"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := svc.Delete(ctx, "alice", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Messages(ctx, "alice", first.ID); !errors.Is(err, domain.ErrChatNotFound) {
		t.Fatalf("expected deleted chat, got %v", err)
	}
	if _, err := docs.GetDocument(ctx, first.ID); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("document must be dropped with the chat, got %v", err)
	}
}

func TestSendOrderedReleasesCallerOnEveryPath(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChatService()
	chat, _ := svc.Create(ctx, "alice", "Go")

	cases := []struct {
		name    string
		userID  string
		content string
		wantErr error
	}{
		{"persisted", "alice", "quiz Go", nil},
		{"empty message", "alice", "   ", domain.ErrEmptyMessage},
		{"foreign chat", "bob", "quiz Go", domain.ErrForbidden},
	}
	for _, tc := range cases {
		calls := 0
		_, err := svc.SendOrdered(ctx, tc.userID, chat.ID, tc.content, func() { calls++ })
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
		if calls != 1 {
			t.Fatalf("%s: callback fired %d times", tc.name, calls)
		}
	}
}
