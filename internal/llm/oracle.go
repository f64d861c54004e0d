package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	questionsPerCall = 3
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("llm api key not configured")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Attempts    int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = 1.1
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Attempts <= 0 {
		c.Attempts = 2
	}
	return c
}

// Oracle generates quiz questions and topic suggestions with a chat model
// reached through the OpenAI-compatible API.
type Oracle struct {
	model llms.Model
	cfg   Config
	now   func() time.Time
}

// New dials the configured provider.
func New(cfg Config) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	cfg = cfg.withDefaults()
	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, cfg Config) *Oracle {
	return &Oracle{model: model, cfg: cfg.withDefaults(), now: time.Now}
}

type generatedItem struct {
	Q       string   `json:"q"`
	Options []string `json:"options"`
	A       string   `json:"a"`
}

// NextQuestion returns one unanswered question body carrying its hidden answer.
func (o *Oracle) NextQuestion(ctx context.Context, req domain.GenerationRequest) (string, error) {
	seed := o.now().UnixMilli() % 10000
	var prompt string
	if req.Document != "" {
		prompt = documentPrompt(req.Document, questionsPerCall, req.Asked, seed)
	} else {
		prompt = topicPrompt(req.Topic, questionsPerCall, req.Asked, seed)
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.Attempts; attempt++ {
		content, err := o.complete(ctx, questionSystemPrompt, prompt, o.cfg.Temperature)
		if err != nil {
			lastErr = err
			log.Printf("[Oracle.NextQuestion] chat=%s attempt=%d: %v", req.ChatID, attempt, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		q, ok := pickQuestion(content, req.Asked)
		if !ok {
			lastErr = domain.ErrMalformedQuestion
			log.Printf("[Oracle.NextQuestion] chat=%s attempt=%d: no valid item in %d chars", req.ChatID, attempt, len(content))
			continue
		}
		q.Topic = req.Topic
		q.Number = req.Number
		return quiz.Encode(q), nil
	}
	return "", fmt.Errorf("generate question for %q: %w", req.Topic, lastErr)
}

// SuggestTopics proposes n topics from a user's recent chat titles.
func (o *Oracle) SuggestTopics(ctx context.Context, titles []string, n int) ([]string, error) {
	content, err := o.complete(ctx, topicSystemPrompt, suggestionPrompt(titles, n), 0.7)
	if err != nil {
		return nil, err
	}
	var topics []string
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics, nil
}

func (o *Oracle) complete(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.model.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, system),
			llms.TextParts(schema.ChatMessageTypeHuman, prompt),
		},
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(o.cfg.MaxTokens),
		llms.WithTopP(0.95),
	)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// pickQuestion decodes the model output and returns the first valid item,
// preferring one that was not asked before.
func pickQuestion(content string, asked []string) (quiz.Question, bool) {
	var items []generatedItem
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &items); err != nil {
		return quiz.Question{}, false
	}
	seen := make(map[string]struct{}, len(asked))
	for _, q := range asked {
		seen[strings.ToLower(strings.TrimSpace(q))] = struct{}{}
	}

	var (
		first quiz.Question
		found bool
	)
	for _, item := range items {
		q, ok := item.question()
		if !ok {
			continue
		}
		if _, repeat := seen[strings.ToLower(q.Text)]; !repeat {
			return q, true
		}
		if !found {
			first, found = q, true
		}
	}
	return first, found
}

func (it generatedItem) question() (quiz.Question, bool) {
	text := strings.Join(strings.Fields(it.Q), " ")
	letter, ok := quiz.NormalizeLetter(it.A)
	if text == "" || !ok || len(it.Options) != len(quiz.Letters) {
		return quiz.Question{}, false
	}
	q := quiz.Question{Text: text, Correct: letter}
	for i, opt := range it.Options {
		opt = strings.Join(strings.Fields(opt), " ")
		if opt == "" {
			return quiz.Question{}, false
		}
		q.Options = append(q.Options, quiz.Option{Letter: quiz.Letters[i], Text: opt, Status: quiz.StatusNormal})
	}
	return q, true
}

// Disabled stands in when no API key is configured. Every call fails with
// ErrNotConfigured, so quizzes degrade to a plain reply and topic suggestions
// fall back to the defaults.
type Disabled struct{}

func (Disabled) NextQuestion(context.Context, domain.GenerationRequest) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) SuggestTopics(context.Context, []string, int) ([]string, error) {
	return nil, ErrNotConfigured
}
