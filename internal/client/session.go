package client

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
	httptransport "quizbot-service/internal/transport/http"
)

// Session is the terminal view of one chat. It grades letter answers locally
// as soon as they are typed and swaps in the server's answered copy when it
// arrives. It is driven from a single goroutine.
type Session struct {
	out     io.Writer
	rec     quiz.Reconciler
	current *quiz.Question
}

func NewSession(out io.Writer) *Session {
	return &Session{out: out}
}

// History renders a full transcript and resets optimistic state.
func (s *Session) History(views []httptransport.MessageView) {
	s.rec.Reset()
	s.current = nil
	for _, v := range views {
		s.show(v, true)
	}
}

// Message renders one live message.
func (s *Session) Message(v httptransport.MessageView) {
	s.show(v, false)
}

// State applies the server's view of the quiz after a turn.
func (s *Session) State(st quiz.SessionState) {
	if !st.Live() {
		s.rec.Reset()
		s.current = nil
	}
}

// Input handles a typed line and returns the text to forward, if any.
func (s *Session) Input(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	letter, isLetter := quiz.NormalizeLetter(line)
	if !isLetter || s.current == nil {
		return line, true
	}

	verdict, submit, err := s.rec.Select(*s.current, letter)
	switch {
	case errors.Is(err, domain.ErrAlreadyAnswered):
		fmt.Fprintln(s.out, "This question is already answered.")
		return "", false
	case errors.Is(err, domain.ErrMissingAnswerKey):
		// Nothing to grade locally; let the server decide.
		return letter, true
	case err != nil:
		fmt.Fprintf(s.out, "Cannot select %s: %v\n", letter, err)
		return "", false
	}
	if !submit {
		fmt.Fprintf(s.out, "You already picked %s.\n", verdict.Submitted)
		return "", false
	}
	s.render(quiz.View{Question: *s.current, Verdict: &verdict, Pending: true})
	return letter, true
}

func (s *Session) show(v httptransport.MessageView, replay bool) {
	if v.Quiz == nil {
		if v.Role == domain.RoleUser {
			if replay {
				fmt.Fprintf(s.out, "> %s\n\n", v.Content)
			}
			return
		}
		if v.Kind == quiz.KindNotice && quiz.IsComplete(v.Content) {
			s.rec.Reset()
			s.current = nil
		}
		fmt.Fprintf(s.out, "%s\n\n", v.Content)
		return
	}

	q := *v.Quiz
	view := s.rec.Reconcile(q)
	if view.Stale {
		fmt.Fprintln(s.out, "(previous selection discarded)")
	}
	if q.IsAnswered {
		s.current = nil
	} else {
		s.current = &q
	}
	s.render(view)
}

func (s *Session) render(view quiz.View) {
	q := view.Question
	var b strings.Builder
	if q.Topic != "" {
		fmt.Fprintf(&b, "== %s ==", q.Topic)
		if q.Number > 0 {
			fmt.Fprintf(&b, " Question %d", q.Number)
		}
		b.WriteByte('\n')
	}
	b.WriteString(q.Text)
	b.WriteString("\n\n")

	for _, opt := range q.Options {
		b.WriteString(optionMark(opt, view.Verdict))
		fmt.Fprintf(&b, "%s. %s\n", opt.Letter, opt.Text)
	}
	b.WriteByte('\n')

	switch {
	case view.Verdict == nil:
		b.WriteString(quiz.AnswerPrompt)
	case view.Verdict.IsCorrect:
		b.WriteString(quiz.CorrectFeedback)
	default:
		b.WriteString(quiz.IncorrectFeedback(view.Verdict.Correct))
	}
	if view.Pending {
		b.WriteString(" (waiting for server)")
	}
	b.WriteString("\n\n")
	io.WriteString(s.out, b.String())
}

func optionMark(opt quiz.Option, v *quiz.Verdict) string {
	if v == nil {
		return "   "
	}
	switch {
	case opt.Letter == v.Correct:
		return "✅ "
	case opt.Letter == v.Submitted:
		return "❌ "
	}
	return "   "
}
