package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizbot-service/internal/app"
)

type chatHandler struct {
	chats  *app.ChatService
	topics *app.TopicService
}

type chatRequest struct {
	Title string `json:"title" validate:"max=200"`
}

func (h *chatHandler) list(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *chatHandler) create(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	chat, err := h.chats.Create(r.Context(), UserID(r.Context()), req.Title)
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *chatHandler) get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.chats.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"))
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *chatHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	chat, err := h.chats.Rename(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"), req.Title)
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *chatHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chats.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID")); err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
}

func (h *chatHandler) state(w http.ResponseWriter, r *http.Request) {
	state, err := h.chats.State(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"))
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *chatHandler) suggestTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.Suggest(r.Context(), UserID(r.Context()))
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"topics": topics})
}
