package http

import (
	"time"

	"quizbot-service/internal/app"
	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

// MessageView is a message as clients see it: the hidden answer line is
// stripped from Content, and quiz messages carry the parsed question, answer
// key included, so clients can grade a selection before the server replies.
type MessageView struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chat_id"`
	Role      domain.Role    `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      quiz.Kind      `json:"kind"`
	Quiz      *quiz.Question `json:"quiz,omitempty"`
}

func NewMessageView(m domain.Message) MessageView {
	body := quiz.Classify(m)
	return MessageView{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      m.Role,
		Content:   body.Display,
		Timestamp: m.Timestamp,
		Kind:      body.Kind,
		Quiz:      body.Question,
	}
}

func messageViews(msgs []domain.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NewMessageView(m))
	}
	return out
}

// SendResponse is returned by POST /api/messages/send.
type SendResponse struct {
	UserMessage MessageView       `json:"user_message"`
	BotMessage  *MessageView      `json:"bot_message,omitempty"`
	Replies     []MessageView     `json:"replies"`
	State       quiz.SessionState `json:"state"`
}

func newSendResponse(t app.Turn) SendResponse {
	resp := SendResponse{
		UserMessage: NewMessageView(t.UserMessage),
		Replies:     messageViews(t.Replies),
		State:       t.State,
	}
	if n := len(resp.Replies); n > 0 {
		last := resp.Replies[n-1]
		resp.BotMessage = &last
	}
	return resp
}

type authResponse struct {
	User    domain.User `json:"user"`
	Token   string      `json:"token"`
	Message string      `json:"message"`
}
