package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizbot-service/internal/app"
	"quizbot-service/internal/config"
	"quizbot-service/internal/infra/memory"
	"quizbot-service/internal/infra/postgres"
	redisinfra "quizbot-service/internal/infra/redis"
	"quizbot-service/internal/infra/sqlite"
	"quizbot-service/internal/llm"
	transport "quizbot-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// dataStore is what every persistence backend provides.
type dataStore interface {
	app.UserStore
	app.ChatStore
	app.MessageStore
	app.TitleSource
}

// questionOracle covers both generation paths of the LLM adapter.
type questionOracle interface {
	app.Oracle
	app.TopicOracle
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	lockTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Second)
	topicsTTL := config.TTLDuration(cfg.Quiz.TopicsTTL, 10*time.Minute)
	documentTTL := config.TTLDuration(cfg.Quiz.DocumentTTL, 24*time.Hour)

	var oracle questionOracle = llm.Disabled{}
	if o, err := llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     config.TTLDuration(cfg.LLM.Timeout, 30*time.Second),
		Attempts:    cfg.LLM.Attempts,
	}); err == nil {
		oracle = o
	} else if errors.Is(err, llm.ErrNotConfigured) {
		log.Printf("GROQ_API_KEY not set: quizzes are disabled, topics use defaults")
	} else {
		return err
	}

	suggester := app.NewTopicSuggester(store, oracle)
	var (
		sessions  app.SessionRepository
		documents app.DocumentStore
		topics    app.TopicRepository
	)
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, lockTTL)
		documents = redisinfra.NewDocumentStore(redisClient, documentTTL)
		topics = redisinfra.NewTopicRepository(redisClient, suggester, topicsTTL)
	} else {
		sessions = memory.NewSessionStore()
		documents = memory.NewDocumentStore()
		topics = memory.NewTopicRepository(suggester, topicsTTL)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Printf("AUTH_JWT_SECRET not set: using a random secret, tokens will not survive a restart")
	}

	hub := app.NewHub()
	controller := app.NewQuizController(store, sessions, oracle, documents, hub, app.ControllerOptions{
		MaxQuestions:  cfg.Quiz.MaxQuestions,
		HistoryWindow: cfg.Quiz.HistoryWindow,
	})
	router := transport.NewRouter(transport.Services{
		Auth:   app.NewAuthService(store, secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)),
		Chats:  app.NewChatService(store, store, documents, sessions, controller),
		Topics: app.NewTopicService(topics),
		Hub:    hub,
	}, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Sends wait for question generation.
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		log.Printf("starting quizbot on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore picks Postgres, then sqlite, then memory.
func openStore(ctx context.Context, cfg config.Config) (dataStore, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using postgres store")
		return postgres.NewStore(pool), pool.Close, nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using sqlite store at %s", cfg.SQLite.Path)
		return store, func() { _ = store.Close() }, nil
	}
	log.Printf("using in-memory store")
	return memory.NewStore(), func() {}, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
