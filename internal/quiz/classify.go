package quiz

import (
	"strings"

	"quizbot-service/internal/domain"
)

// Kind tags what a message body carries.
type Kind string

const (
	KindText     Kind = "text"
	KindQuestion Kind = "question"
	KindFeedback Kind = "feedback"
	KindNotice   Kind = "notice"
)

// Body is the single classification of a message; downstream code switches on
// Kind instead of re-inspecting the raw text.
type Body struct {
	Kind     Kind
	Display  string
	Question *Question
}

// Classify decodes a persisted message.
func Classify(m domain.Message) Body {
	display := DisplayText(m.Content)
	switch m.Role {
	case domain.RoleSystem:
		return Body{Kind: KindNotice, Display: display}
	case domain.RoleUser:
		return Body{Kind: KindText, Display: display}
	}

	if q, ok := Parse(m.Role, m.Content); ok {
		kind := KindQuestion
		if q.IsAnswered {
			kind = KindFeedback
		}
		return Body{Kind: kind, Display: display, Question: &q}
	}
	if IsComplete(m.Content) || strings.Contains(m.Content, TerminatedMarker) {
		return Body{Kind: KindNotice, Display: display}
	}
	return Body{Kind: KindText, Display: display}
}

// IsComplete reports whether body carries the termination marker.
func IsComplete(body string) bool {
	return strings.Contains(body, CompleteMarker)
}
