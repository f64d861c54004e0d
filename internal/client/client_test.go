package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
	httptransport "quizbot-service/internal/transport/http"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeChatServer sends one question and answers the first submitted letter.
func fakeChatServer(t *testing.T, got chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	q := sampleQuestion()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" || r.URL.Query().Get("chat_id") != "chat-1" {
			http.Error(w, "bad auth", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(httptransport.Outbound{
			Type:    httptransport.EventHistory,
			Payload: []httptransport.MessageView{view("m1", domain.RoleAssistant, quiz.Encode(q))},
		})
		var in struct {
			Type    string                       `json:"type"`
			Payload httptransport.ContentPayload `json:"payload"`
		}
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		got <- in.Payload.Content
		eval, _ := quiz.Evaluate(q, in.Payload.Content)
		_ = conn.WriteJSON(httptransport.Outbound{
			Type:    httptransport.EventMessage,
			Payload: view("m2", domain.RoleAssistant, eval.Body),
		})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func TestClientRoundTrip(t *testing.T) {
	got := make(chan string, 1)
	srv := fakeChatServer(t, got)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out syncBuffer
	c, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), "chat-1", "tok", &out)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	// Input stays open until the server closes the stream.
	pr, pw := io.Pipe()
	defer pw.Close()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, pr) }()

	waitFor(t, &out, "What is 2 + 2?")
	_, _ = pw.Write([]byte("b\n"))

	select {
	case letter := <-got:
		if letter != "B" {
			t.Fatalf("expected normalized letter, got %q", letter)
		}
	case <-ctx.Done():
		t.Fatal("server never received the answer")
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), quiz.CorrectFeedback) {
		t.Fatalf("expected correct feedback in output:\n%s", out.String())
	}
}

func TestDialRejectsBadToken(t *testing.T) {
	srv := fakeChatServer(t, make(chan string, 1))
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), "chat-1", "wrong", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 dial error, got %v", err)
	}
}

func waitFor(t *testing.T, out *syncBuffer, text string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), text) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in:\n%s", text, out.String())
}

