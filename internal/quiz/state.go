package quiz

import (
	"strings"

	"quizbot-service/internal/domain"
)

// Phase is the per-chat quiz state.
type Phase string

const (
	PhaseInactive       Phase = "inactive"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseAnswered       Phase = "answered"
	PhaseTerminated     Phase = "terminated"
)

// SessionState is computed once per turn from the chat's messages and passed
// through the controller.
type SessionState struct {
	Phase            Phase     `json:"phase"`
	Topic            string    `json:"topic,omitempty"`
	Current          *Question `json:"-"`
	CurrentMessageID string    `json:"current_message_id,omitempty"`
	Score            int       `json:"score"`
	Answered         int       `json:"answered"`
	Asked            []string  `json:"-"`
}

// Live reports whether a quiz run is in progress.
func (s SessionState) Live() bool {
	return s.Phase == PhaseAwaitingAnswer || s.Phase == PhaseAnswered
}

// NextNumber is the number for the next generated question.
func (s SessionState) NextNumber() int {
	if s.Current != nil && s.Current.Number > 0 {
		return s.Current.Number + 1
	}
	return s.Answered + 1
}

// DeriveState infers the quiz state from chronological messages. Only assistant
// messages move the state; user and system messages are ignored.
func DeriveState(messages []domain.Message) SessionState {
	state := SessionState{Phase: PhaseInactive}

	latest := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleAssistant {
			latest = i
			break
		}
	}
	if latest < 0 {
		return state
	}

	head := Classify(messages[latest])
	switch head.Kind {
	case KindQuestion:
		state.Phase = PhaseAwaitingAnswer
	case KindFeedback:
		state.Phase = PhaseAnswered
	case KindNotice:
		if IsComplete(messages[latest].Content) {
			state.Phase = PhaseTerminated
		}
		return state
	default:
		return state
	}
	state.Current = head.Question
	state.CurrentMessageID = messages[latest].ID
	state.Topic = head.Question.Topic

	var asked []string
	for i := latest; i >= 0; i-- {
		m := messages[i]
		if m.Role != domain.RoleAssistant {
			continue
		}
		body := Classify(m)
		switch body.Kind {
		case KindQuestion:
			asked = append(asked, body.Question.Text)
			continue
		case KindFeedback:
			state.Answered++
			if strings.HasPrefix(body.Question.Feedback, CorrectFeedback) {
				state.Score++
			}
			continue
		}
		break
	}
	for i := len(asked) - 1; i >= 0; i-- {
		state.Asked = append(state.Asked, asked[i])
	}
	return state
}
