package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"quizbot-service/internal/app"
	"quizbot-service/internal/domain"
	"quizbot-service/internal/infra/memory"
)

type countingOracle struct {
	calls atomic.Int32
}

func (o *countingOracle) NextQuestion(_ context.Context, req domain.GenerationRequest) (string, error) {
	n := o.calls.Add(1)
	return fmt.Sprintf("Question about %s number %d?\n\nA. one\nB. two\nC. three\nD. four\n\n[CORRECT:B]", req.Topic, n), nil
}

type testServer struct {
	*httptest.Server
	hub *app.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	docs := memory.NewDocumentStore()
	sessions := memory.NewSessionStore()
	hub := app.NewHub()

	ctrl := app.NewQuizController(store, sessions, &countingOracle{}, docs, hub, app.ControllerOptions{})
	svc := Services{
		Auth:   app.NewAuthService(store, "test-secret", time.Hour).WithHashCost(bcrypt.MinCost),
		Chats:  app.NewChatService(store, store, docs, sessions, ctrl),
		Topics: app.NewTopicService(memory.NewTopicRepository(app.NewTopicSuggester(store, nil), time.Minute)),
		Hub:    hub,
	}
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, _ := http.NewRequest(method, s.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	var auth authResponse
	status := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "username": "tester", "password": "secret1",
	}, &auth)
	if status != http.StatusCreated || auth.Token == "" {
		t.Fatalf("signup status=%d resp=%+v", status, auth)
	}
	return auth.Token
}

func (s *testServer) createChat(t *testing.T, token string) domain.Chat {
	t.Helper()
	var chat domain.Chat
	if status := s.do(t, http.MethodPost, "/api/chats", token, map[string]string{"title": "Go"}, &chat); status != http.StatusCreated {
		t.Fatalf("create chat status=%d", status)
	}
	return chat
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.signup(t, "ann@example.com")

	var errBody errResp
	if status := srv.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "ann@example.com", "username": "ann", "password": "secret1",
	}, &errBody); status != http.StatusConflict {
		t.Fatalf("duplicate signup status=%d", status)
	}
	if status := srv.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "not-an-email", "username": "ann", "password": "123",
	}, &errBody); status != http.StatusBadRequest {
		t.Fatalf("invalid signup status=%d", status)
	}

	var login authResponse
	if status := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ANN@example.com", "password": "secret1",
	}, &login); status != http.StatusOK || login.Token == "" || login.User.Email != "ann@example.com" {
		t.Fatalf("login status=%d resp=%+v", status, login)
	}
	if status := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrong-password",
	}, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d", status)
	}

	if status := srv.do(t, http.MethodGet, "/api/chats", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d", status)
	}
	if status := srv.do(t, http.MethodGet, "/api/chats", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", status)
	}
}

func TestSendQuizTurnHidesAnswer(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "bo@example.com")
	chat := srv.createChat(t, token)

	var resp SendResponse
	if status := srv.do(t, http.MethodPost, "/api/messages/send", token, sendRequest{ChatID: chat.ID, Content: "quiz Go"}, &resp); status != http.StatusOK {
		t.Fatalf("send status=%d", status)
	}
	if resp.BotMessage == nil || resp.BotMessage.Quiz == nil {
		t.Fatalf("expected a quiz reply, got %+v", resp)
	}
	if bytes.Contains([]byte(resp.BotMessage.Content), []byte("[CORRECT:")) {
		t.Fatalf("hidden marker leaked into content: %q", resp.BotMessage.Content)
	}
	if resp.BotMessage.Quiz.Correct != "B" || resp.State.Phase != "awaiting_answer" {
		t.Fatalf("unexpected quiz payload %+v state %+v", resp.BotMessage.Quiz, resp.State)
	}

	if status := srv.do(t, http.MethodPost, "/api/messages/send", token, sendRequest{ChatID: chat.ID, Content: "b"}, &resp); status != http.StatusOK {
		t.Fatalf("answer status=%d", status)
	}
	if resp.State.Score != 1 || resp.State.Answered != 1 {
		t.Fatalf("unexpected score %+v", resp.State)
	}

	var history []MessageView
	srv.do(t, http.MethodGet, "/api/messages/chat/"+chat.ID, token, nil, &history)
	if len(history) != 5 {
		t.Fatalf("expected 5 messages (user, q1, user, feedback, q2), got %d", len(history))
	}
	if fb := history[3]; fb.Kind != "feedback" || fb.Quiz == nil || !fb.Quiz.IsAnswered {
		t.Fatalf("expected feedback copy, got %+v", fb)
	}

	var one MessageView
	if status := srv.do(t, http.MethodGet, "/api/messages/"+history[1].ID, token, nil, &one); status != http.StatusOK || one.ID != history[1].ID {
		t.Fatalf("get message status=%d %+v", status, one)
	}
}

func TestChatOwnershipAndCRUD(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signup(t, "alice@example.com")
	bob := srv.signup(t, "bob@example.com")
	chat := srv.createChat(t, alice)

	if status := srv.do(t, http.MethodGet, "/api/chats/"+chat.ID, bob, nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign chat status=%d", status)
	}
	if status := srv.do(t, http.MethodPost, "/api/messages/send", bob, sendRequest{ChatID: chat.ID, Content: "hi"}, nil); status != http.StatusForbidden {
		t.Fatalf("foreign send status=%d", status)
	}

	var renamed domain.Chat
	if status := srv.do(t, http.MethodPut, "/api/chats/"+chat.ID, alice, chatRequest{Title: "Biology"}, &renamed); status != http.StatusOK || renamed.Title != "Biology" {
		t.Fatalf("rename status=%d %+v", status, renamed)
	}
	var chats []domain.Chat
	srv.do(t, http.MethodGet, "/api/chats", alice, nil, &chats)
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(chats))
	}

	var topics map[string][]string
	if status := srv.do(t, http.MethodGet, "/api/chats/topics", alice, nil, &topics); status != http.StatusOK || len(topics["topics"]) != app.SuggestionCount {
		t.Fatalf("topics status=%d %v", status, topics)
	}

	if status := srv.do(t, http.MethodDelete, "/api/chats/"+chat.ID, alice, nil, nil); status != http.StatusOK {
		t.Fatalf("delete status=%d", status)
	}
	if status := srv.do(t, http.MethodGet, "/api/chats/"+chat.ID, alice, nil, nil); status != http.StatusNotFound {
		t.Fatalf("deleted chat status=%d", status)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "cy@example.com")
	chat := srv.createChat(t, token)

	upload := func(filename string, data []byte) int {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("chat_id", chat.ID)
		fw, _ := mw.CreateFormFile("file", filename)
		_, _ = fw.Write(data)
		_ = mw.Close()

		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/messages/upload-pdf", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := upload("notes.txt", []byte("hello")); status != http.StatusBadRequest {
		t.Fatalf("txt upload status=%d", status)
	}
	if status := upload("notes.pdf", []byte("not really a pdf")); status != http.StatusBadRequest {
		t.Fatalf("fake pdf status=%d", status)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	if status := srv.do(t, http.MethodGet, "/healthz", "", nil, nil); status != http.StatusOK {
		t.Fatalf("healthz status=%d", status)
	}
}
