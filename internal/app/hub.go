package app

import (
	"sync"

	"quizbot-service/internal/domain"
)

const subscriberBuffer = 32

// Hub fans persisted chat messages out to live subscribers of that chat.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[chan domain.Message]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan domain.Message]struct{})}
}

// Subscribe returns a channel that receives every message appended to chatID.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(chatID string) (<-chan domain.Message, func()) {
	ch := make(chan domain.Message, subscriberBuffer)

	h.mu.Lock()
	room, ok := h.rooms[chatID]
	if !ok {
		room = make(map[chan domain.Message]struct{})
		h.rooms[chatID] = room
	}
	room[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		room, ok := h.rooms[chatID]
		if !ok {
			return
		}
		if _, ok := room[ch]; ok {
			delete(room, ch)
			close(ch)
		}
		if len(room) == 0 {
			delete(h.rooms, chatID)
		}
	}
	return ch, cancel
}

// Publish delivers msgs to the subscribers of their chat.
func (h *Hub) Publish(msgs ...domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		for ch := range h.rooms[m.ChatID] {
			select {
			case ch <- m:
			default:
				// Slow subscriber: drop its oldest pending message instead of blocking the chat.
				select {
				case <-ch:
				default:
				}
				ch <- m
			}
		}
	}
}

// Subscribers reports how many live subscribers a chat has.
func (h *Hub) Subscribers(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}
