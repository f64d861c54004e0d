package quiz_test

import (
	"errors"
	"strings"
	"testing"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

func mustParse(t *testing.T, body string) quiz.Question {
	t.Helper()
	q, ok := quiz.Parse(domain.RoleAssistant, body)
	if !ok {
		t.Fatalf("expected quiz question in %q", body)
	}
	return q
}

func TestEvaluateCorrectAnswer(t *testing.T) {
	eval, err := quiz.Evaluate(mustParse(t, twoPlusTwo), "B")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !eval.IsCorrect {
		t.Fatalf("expected correct")
	}
	for _, want := range []string{"✅ B. 4", "✅ Correct!", "[CORRECT:B]"} {
		if !strings.Contains(eval.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, eval.Body)
		}
	}
	if strings.Contains(eval.Body, "❌") {
		t.Fatalf("correct answer must not produce incorrect markers:\n%s", eval.Body)
	}
}

func TestEvaluateIncorrectAnswer(t *testing.T) {
	eval, err := quiz.Evaluate(mustParse(t, twoPlusTwo), "a")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.IsCorrect {
		t.Fatalf("expected incorrect")
	}
	for _, want := range []string{"❌ A. 3", "✅ B. 4", "❌ Incorrect. The correct answer is B."} {
		if !strings.Contains(eval.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, eval.Body)
		}
	}
	for _, plain := range []string{"\nC. 5", "\nD. 6"} {
		if !strings.Contains(eval.Body, plain) {
			t.Fatalf("untouched options must stay plain, missing %q", plain)
		}
	}
}

func TestEvaluateRejections(t *testing.T) {
	q := mustParse(t, twoPlusTwo)

	if _, err := quiz.Evaluate(q, "E"); !errors.Is(err, domain.ErrOutOfRangeAnswer) {
		t.Fatalf("expected out of range, got %v", err)
	}

	eval, _ := quiz.Evaluate(q, "B")
	if _, err := quiz.Evaluate(eval.Question, "C"); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	q.Correct = ""
	if _, err := quiz.Evaluate(q, "B"); !errors.Is(err, domain.ErrMissingAnswerKey) {
		t.Fatalf("expected missing answer key, got %v", err)
	}
}

func TestEvaluateRoundTripWithCorrectLetter(t *testing.T) {
	bodies := []string{
		twoPlusTwo,
		quiz.Encode(quiz.Question{
			Topic: "Databases", Number: 1, Text: "Which SQL clause filters groups?",
			Options: []quiz.Option{{Letter: "A", Text: "WHERE"}, {Letter: "B", Text: "HAVING"}, {Letter: "C", Text: "ORDER BY"}, {Letter: "D", Text: "LIMIT"}},
			Correct: "B",
		}),
	}
	for _, body := range bodies {
		q := mustParse(t, body)
		eval, err := quiz.Evaluate(q, q.Correct)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !eval.IsCorrect {
			t.Fatalf("correct letter must score")
		}
		answered := mustParse(t, eval.Body)
		opt, _ := answered.Option(q.Correct)
		if opt.Status != quiz.StatusCorrect {
			t.Fatalf("correct option must be marked, got %s", opt.Status)
		}
	}
}

func TestSubmittedLetterFromServerCopy(t *testing.T) {
	q := mustParse(t, twoPlusTwo)
	for _, letter := range quiz.Letters {
		eval, _ := quiz.Evaluate(q, letter)
		got, ok := quiz.SubmittedLetter(mustParse(t, eval.Body))
		if !ok || got != letter {
			t.Fatalf("submitted %s, recovered %q", letter, got)
		}
	}
}
