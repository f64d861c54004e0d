package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"quizbot-service/internal/app"
	"quizbot-service/internal/infra/pdf"
)

const previewChars = 200

type messageHandler struct {
	chats *app.ChatService
}

type sendRequest struct {
	ChatID  string `json:"chat_id" validate:"required"`
	Content string `json:"content" validate:"required,max=4000"`
}

func (h *messageHandler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	turn, err := h.chats.Send(r.Context(), UserID(r.Context()), req.ChatID, req.Content)
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSendResponse(turn))
}

func (h *messageHandler) list(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chats.Messages(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"))
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageViews(msgs))
}

func (h *messageHandler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.chats.Message(r.Context(), UserID(r.Context()), chi.URLParam(r, "messageID"))
	if err != nil {
		writeDomainErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewMessageView(m))
}

type uploadResponse struct {
	Message    string `json:"message"`
	Filename   string `json:"filename"`
	Characters int    `json:"characters"`
	Preview    string `json:"preview"`
}

func (h *messageHandler) uploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	chatID := r.FormValue("chat_id")
	if chatID == "" {
		writeErr(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}
	text, err := pdf.ExtractReader(file, maxUploadBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Could not extract text from PDF")
		return
	}
	if _, err := h.chats.AttachDocument(r.Context(), UserID(r.Context()), chatID, header.Filename, text); err != nil {
		writeDomainErr(w, r, err)
		return
	}

	preview := []rune(text)
	resp := uploadResponse{
		Message:    "PDF uploaded successfully",
		Filename:   header.Filename,
		Characters: len(preview),
		Preview:    text,
	}
	if len(preview) > previewChars {
		resp.Preview = string(preview[:previewChars]) + "..."
	}
	writeJSON(w, http.StatusOK, resp)
}
