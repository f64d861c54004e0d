package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

type fakeModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range msgs[len(msgs)-1].Parts {
		if text, ok := part.(llms.TextContent); ok {
			f.prompts = append(f.prompts, text.Text)
		}
	}
	i := len(f.prompts) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

const twoItems = "```json\n" + `[
  {"q": "What does len return for a nil slice?", "options": ["panic", "0", "-1", "nil"], "a": "b"},
  {"q": "Which keyword starts a goroutine?", "options": ["go", "async", "spawn", "run"], "a": "A"}
]` + "\n```"

func TestNextQuestionRendersParseableBody(t *testing.T) {
	model := &fakeModel{replies: []string{twoItems}}
	oracle := NewWithModel(model, Config{})

	body, err := oracle.NextQuestion(context.Background(), domain.GenerationRequest{ChatID: "c1", Topic: "Go", Number: 3})
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	q, err := quiz.ParseGenerated(body)
	if err != nil {
		t.Fatalf("rendered body does not parse: %v\n%s", err, body)
	}
	if q.Topic != "Go" || q.Number != 3 || q.Correct != "B" || q.Text != "What does len return for a nil slice?" {
		t.Fatalf("unexpected question %+v", q)
	}
	if !strings.Contains(model.prompts[0], "about Go") {
		t.Fatalf("prompt missing topic: %s", model.prompts[0])
	}
}

func TestNextQuestionSkipsAskedQuestions(t *testing.T) {
	model := &fakeModel{replies: []string{twoItems}}
	oracle := NewWithModel(model, Config{})

	body, err := oracle.NextQuestion(context.Background(), domain.GenerationRequest{
		Topic: "Go",
		Asked: []string{"what does len return for a nil slice?"},
	})
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	q, _ := quiz.ParseGenerated(body)
	if q.Text != "Which keyword starts a goroutine?" {
		t.Fatalf("expected the unasked question, got %q", q.Text)
	}
	if !strings.Contains(model.prompts[0], "DO NOT REPEAT") {
		t.Fatalf("prompt should list asked questions")
	}
}

func TestNextQuestionRetriesMalformedOutput(t *testing.T) {
	model := &fakeModel{replies: []string{
		`[{"q": "Missing options", "options": ["a"], "a": "A"}]`,
		twoItems,
	}}
	oracle := NewWithModel(model, Config{Attempts: 2})

	if _, err := oracle.NextQuestion(context.Background(), domain.GenerationRequest{Topic: "Go"}); err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if len(model.prompts) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(model.prompts))
	}
}

func TestNextQuestionGivesUpAfterAttempts(t *testing.T) {
	boom := errors.New("rate limited")
	model := &fakeModel{errs: []error{boom, boom}}
	oracle := NewWithModel(model, Config{Attempts: 2})

	_, err := oracle.NextQuestion(context.Background(), domain.GenerationRequest{Topic: "Go"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	model = &fakeModel{replies: []string{"not json", "still not json"}}
	oracle = NewWithModel(model, Config{Attempts: 2})
	if _, err := oracle.NextQuestion(context.Background(), domain.GenerationRequest{Topic: "Go"}); !errors.Is(err, domain.ErrMalformedQuestion) {
		t.Fatalf("expected ErrMalformedQuestion, got %v", err)
	}
}

func TestDocumentPromptCarriesExcerpt(t *testing.T) {
	model := &fakeModel{replies: []string{twoItems}}
	oracle := NewWithModel(model, Config{})
	doc := strings.Repeat("é", documentExcerpt+50)

	if _, err := oracle.NextQuestion(context.Background(), domain.GenerationRequest{Topic: "PDF", Document: doc}); err != nil {
		t.Fatalf("next question: %v", err)
	}
	prompt := model.prompts[0]
	if !strings.Contains(prompt, "PDF content") {
		t.Fatalf("expected document prompt")
	}
	if strings.Count(prompt, "é") != documentExcerpt {
		t.Fatalf("document should be cut to %d runes", documentExcerpt)
	}
}

func TestSuggestTopics(t *testing.T) {
	model := &fakeModel{replies: []string{"```\n[\"Go Concurrency\", \"SQL\", \"Kubernetes\"]\n```"}}
	oracle := NewWithModel(model, Config{})

	topics, err := oracle.SuggestTopics(context.Background(), []string{"goroutines", "joins"}, 2)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(topics) != 2 || topics[0] != "Go Concurrency" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if !strings.Contains(model.prompts[0], "- goroutines") {
		t.Fatalf("titles missing from prompt")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"[1]":                    "[1]",
		"```json\n[1]\n```":      "[1]",
		"here:\n```\n[1]\n```\n": "[1]",
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
