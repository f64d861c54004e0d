package quiz_test

import (
	"errors"
	"testing"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

func TestReconcilerOptimisticThenServer(t *testing.T) {
	q := mustParse(t, twoPlusTwo)
	var r quiz.Reconciler

	v, submit, err := r.Select(q, "A")
	if err != nil || !submit {
		t.Fatalf("first click must submit: submit=%v err=%v", submit, err)
	}
	if v.IsCorrect || v.Correct != "B" || v.Source != quiz.SourceOptimistic {
		t.Fatalf("unexpected optimistic verdict %+v", v)
	}

	// Second click is locked out and not forwarded.
	again, submit, err := r.Select(q, "B")
	if err != nil || submit {
		t.Fatalf("second click must not submit: submit=%v err=%v", submit, err)
	}
	if again.Submitted != "A" {
		t.Fatalf("lockout must keep the first selection, got %+v", again)
	}

	// A reload of the still-unanswered question keeps the overlay.
	view := r.Reconcile(q)
	if !view.Pending || view.Verdict == nil || view.Verdict.Submitted != "A" {
		t.Fatalf("expected pending optimistic view, got %+v", view)
	}

	eval, _ := quiz.Evaluate(q, "A")
	view = r.Reconcile(mustParse(t, eval.Body))
	if view.Pending || view.Stale {
		t.Fatalf("server copy must clear the overlay: %+v", view)
	}
	if view.Verdict == nil || view.Verdict.Source != quiz.SourceServer || view.Verdict.IsCorrect != v.IsCorrect {
		t.Fatalf("server verdict must replace the optimistic one: %+v", view.Verdict)
	}
	if _, ok := r.Overlay(); ok {
		t.Fatalf("overlay must be cleared")
	}
}

func TestReconcilerNeverDisagrees(t *testing.T) {
	q := mustParse(t, twoPlusTwo)
	for _, letter := range quiz.Letters {
		local, err := quiz.LocalEvaluate(q, letter)
		if err != nil {
			t.Fatalf("local evaluate: %v", err)
		}
		eval, _ := quiz.Evaluate(q, letter)
		server, ok := quiz.ServerVerdict(mustParse(t, eval.Body))
		if !ok {
			t.Fatalf("server copy must carry a verdict")
		}
		if local.IsCorrect != server.IsCorrect || local.Submitted != server.Submitted || local.Correct != server.Correct {
			t.Fatalf("letter %s: local %+v vs server %+v", letter, local, server)
		}
	}
}

func TestReconcilerDiscardsStaleOverlay(t *testing.T) {
	q := mustParse(t, twoPlusTwo)
	other := mustParse(t, "What is 3+3?\nA. 6\nB. 5\nC. 4\nD. 3\n[CORRECT:A]")
	var r quiz.Reconciler

	if _, _, err := r.Select(q, "C"); err != nil {
		t.Fatalf("select: %v", err)
	}
	view := r.Reconcile(other)
	if !view.Stale || view.Pending || view.Verdict != nil {
		t.Fatalf("expected stale discard with pure server view, got %+v", view)
	}
	if _, ok := r.Overlay(); ok {
		t.Fatalf("stale overlay must be dropped")
	}
}

func TestReconcilerRejectsAnsweredQuestion(t *testing.T) {
	q := mustParse(t, twoPlusTwo)
	eval, _ := quiz.Evaluate(q, "B")
	var r quiz.Reconciler
	if _, submit, err := r.Select(eval.Question, "A"); !errors.Is(err, domain.ErrAlreadyAnswered) || submit {
		t.Fatalf("answered question must be locked, submit=%v err=%v", submit, err)
	}
}
