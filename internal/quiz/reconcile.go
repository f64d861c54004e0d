package quiz

import (
	"strings"

	"quizbot-service/internal/domain"
)

// VerdictSource tells whether a verdict was computed locally or read back from the server copy.
type VerdictSource string

const (
	SourceOptimistic VerdictSource = "optimistic"
	SourceServer     VerdictSource = "server"
)

// Verdict is the correctness of one submission.
type Verdict struct {
	Submitted string        `json:"submitted"`
	Correct   string        `json:"correct"`
	IsCorrect bool          `json:"is_correct"`
	Source    VerdictSource `json:"source"`
}

// LocalEvaluate computes the verdict the server will reach, using the same
// hidden letter the server stored.
func LocalEvaluate(q Question, letter string) (Verdict, error) {
	eval, err := Evaluate(q, letter)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Submitted: eval.Submitted,
		Correct:   q.Correct,
		IsCorrect: eval.IsCorrect,
		Source:    SourceOptimistic,
	}, nil
}

// ServerVerdict reads the verdict out of an answered server copy.
func ServerVerdict(q Question) (Verdict, bool) {
	submitted, ok := SubmittedLetter(q)
	if !ok {
		return Verdict{}, false
	}
	correct := q.Correct
	if correct == "" {
		for _, opt := range q.Options {
			if opt.Status == StatusCorrect {
				correct = opt.Letter
			}
		}
	}
	return Verdict{
		Submitted: submitted,
		Correct:   correct,
		IsCorrect: strings.HasPrefix(q.Feedback, CorrectFeedback),
		Source:    SourceServer,
	}, true
}

// View is what a renderer shows for one question.
type View struct {
	Question Question
	Verdict  *Verdict
	// Pending is set while an optimistic verdict waits for the server copy.
	Pending bool
	// Stale is set when an overlay for a different question was discarded.
	Stale bool
}

// Reconciler holds the optimistic overlay for the question on screen. It is
// meant for a single-threaded event loop and is not safe for concurrent use.
type Reconciler struct {
	key     string
	verdict *Verdict
}

// Select handles an option click. submit is false when the click must not be
// forwarded because this question already has a selection.
func (r *Reconciler) Select(q Question, letter string) (Verdict, bool, error) {
	if q.IsAnswered {
		return Verdict{}, false, domain.ErrAlreadyAnswered
	}
	key := q.Key()
	if r.verdict != nil {
		if r.key == key {
			return *r.verdict, false, nil
		}
		r.clear()
	}
	v, err := LocalEvaluate(q, letter)
	if err != nil {
		return Verdict{}, false, err
	}
	r.key = key
	r.verdict = &v
	return v, true, nil
}

// Reconcile applies a freshly parsed server question. The server verdict always
// replaces the overlay; the two are never merged.
func (r *Reconciler) Reconcile(server Question) View {
	view := View{Question: server}
	if sv, ok := ServerVerdict(server); ok {
		view.Verdict = &sv
	}
	if r.verdict == nil {
		return view
	}
	if r.key != server.Key() {
		r.clear()
		view.Stale = true
		return view
	}
	if server.IsAnswered {
		r.clear()
		return view
	}
	v := *r.verdict
	view.Verdict = &v
	view.Pending = true
	return view
}

// Overlay returns the current optimistic verdict, if any.
func (r *Reconciler) Overlay() (Verdict, bool) {
	if r.verdict == nil {
		return Verdict{}, false
	}
	return *r.verdict, true
}

// Reset drops any optimistic state, e.g. after a stop or a full reload.
func (r *Reconciler) Reset() {
	r.clear()
}

func (r *Reconciler) clear() {
	r.key = ""
	r.verdict = nil
}
