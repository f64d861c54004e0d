package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"quizbot-service/internal/app"
)

// Envelope types exchanged over /ws.
const (
	EventHistory = "history"
	EventMessage = "message"
	EventState   = "state"
	EventError   = "error"
)

type WSHandler struct {
	auth     *app.AuthService
	chats    *app.ChatService
	hub      *app.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(auth *app.AuthService, chats *app.ChatService, hub *app.Hub) *WSHandler {
	return &WSHandler{
		auth:  auth,
		chats: chats,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Inbound is a client frame.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ContentPayload carries the text of an inbound chat message.
type ContentPayload struct {
	Content string `json:"content"`
}

// Outbound is a server frame.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS streams a chat's history and live messages, and runs inbound
// messages through the same path as POST /api/messages/send.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if chatID == "" || token == "" {
		http.Error(w, "missing chat_id or token", http.StatusBadRequest)
		return
	}
	userID, err := h.auth.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if _, err := h.chats.Get(r.Context(), userID, chatID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WSHandler.ServeWS] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Subscribe before reading history so nothing appended in between is lost.
	updates, cancel := h.hub.Subscribe(chatID)
	defer cancel()

	history, err := h.chats.Messages(r.Context(), userID, chatID)
	if err != nil {
		_ = conn.WriteJSON(Outbound{Type: EventError, Payload: errorPayload{Message: err.Error()}})
		return
	}
	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
	}

	send := make(chan Outbound, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[WSHandler.ServeWS] chat=%s write: %v", chatID, err)
				// Keep draining so producers never block on a dead connection.
				for range send {
				}
				return
			}
		}
	}()

	emit := func(msg Outbound) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	send <- Outbound{Type: EventHistory, Payload: messageViews(history)}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case m, ok := <-updates:
				if !ok {
					return
				}
				if _, dup := seen[m.ID]; dup {
					continue
				}
				emit(Outbound{Type: EventMessage, Payload: NewMessageView(m)})
			case <-closeSignals:
				return
			}
		}
	}()

	// Turns overlap so a "stop" is not stuck behind a slow generation, but each
	// one waits until the previous frame's message is persisted, so the chat
	// keeps the order the frames arrived in.
	var turns sync.WaitGroup
	ctx := context.WithoutCancel(r.Context())
	prev := make(chan struct{})
	close(prev)
	for {
		var inbound Inbound
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case EventMessage:
			var payload ContentPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(Outbound{Type: EventError, Payload: errorPayload{Message: "invalid message payload"}})
				continue
			}
			wait, accepted := prev, make(chan struct{})
			prev = accepted
			turns.Add(1)
			go func() {
				defer turns.Done()
				<-wait
				turn, err := h.chats.SendOrdered(ctx, userID, chatID, payload.Content, func() { close(accepted) })
				if err != nil {
					emit(Outbound{Type: EventError, Payload: errorPayload{Message: err.Error()}})
					return
				}
				emit(Outbound{Type: EventState, Payload: turn.State})
			}()
		default:
			emit(Outbound{Type: EventError, Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	turns.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}
