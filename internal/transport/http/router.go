package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quizbot-service/internal/app"
)

const maxUploadBytes = 10 << 20

// Services are the use cases the HTTP surface exposes.
type Services struct {
	Auth   *app.AuthService
	Chats  *app.ChatService
	Topics *app.TopicService
	Hub    *app.Hub
}

// NewRouter mounts the REST API, the websocket endpoint and a health check.
func NewRouter(svc Services, corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := &authHandler{auth: svc.Auth}
	chats := &chatHandler{chats: svc.Chats, topics: svc.Topics}
	messages := &messageHandler{chats: svc.Chats}
	ws := NewWSHandler(svc.Auth, svc.Chats, svc.Hub)

	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", auth.signup)
		r.Post("/auth/login", auth.login)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser(svc.Auth))
			// Generation can take a while; the limit only bounds request handling.
			r.Use(middleware.Timeout(90 * time.Second))
			r.Get("/auth/me", auth.me)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chats.list)
				r.Post("/", chats.create)
				r.Get("/topics", chats.suggestTopics)
				r.Route("/{chatID}", func(r chi.Router) {
					r.Get("/", chats.get)
					r.Put("/", chats.rename)
					r.Delete("/", chats.delete)
					r.Get("/state", chats.state)
				})
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/send", messages.send)
				r.Post("/upload-pdf", messages.uploadPDF)
				r.Get("/chat/{chatID}", messages.list)
				r.Get("/{messageID}", messages.get)
			})
		})
	})
	return r
}
