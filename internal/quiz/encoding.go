package quiz

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Literal fragments of the quiz text grammar.
const (
	HiddenMarkerPrefix = "[CORRECT:"
	CompleteMarker     = "Quiz Complete"
	TerminatedMarker   = "Previous Quiz Terminated"

	AnswerPrompt      = "Type your answer (A, B, C, or D) or 'stop' to end:"
	CorrectFeedback   = "✅ Correct!"
	incorrectFeedback = "❌ Incorrect"

	markCorrect   = "✅ "
	markIncorrect = "❌ "
)

// Letters are the option letters in their required order.
var Letters = [4]string{"A", "B", "C", "D"}

// OptionStatus reflects the post-answer marker on an option line.
type OptionStatus string

const (
	StatusNormal    OptionStatus = "normal"
	StatusCorrect   OptionStatus = "correct"
	StatusIncorrect OptionStatus = "incorrect"
)

// Option is one lettered choice.
type Option struct {
	Letter string       `json:"letter"`
	Text   string       `json:"text"`
	Status OptionStatus `json:"status"`
}

// Question is the structured form of a quiz message body. It is never stored on
// its own; it is always derived from a message by Parse.
type Question struct {
	Topic      string   `json:"topic,omitempty"`
	Number     int      `json:"number,omitempty"`
	Text       string   `json:"question"`
	Options    []Option `json:"options"`
	Correct    string   `json:"correct_answer,omitempty"`
	Feedback   string   `json:"feedback,omitempty"`
	IsAnswered bool     `json:"is_answered"`
}

// Key identifies a question independently of its answer markers, so the
// optimistic and the answered copy of the same question compare equal.
func (q Question) Key() string {
	var b strings.Builder
	b.WriteString(q.Topic)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Number))
	b.WriteByte('|')
	b.WriteString(q.Text)
	for _, opt := range q.Options {
		b.WriteByte('|')
		b.WriteString(opt.Letter)
		b.WriteString(opt.Text)
	}
	return b.String()
}

// Option returns the option with the given letter.
func (q Question) Option(letter string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Letter == letter {
			return opt, true
		}
	}
	return Option{}, false
}

// Encode renders q in the persisted grammar, including the hidden marker.
func Encode(q Question) string {
	lines := make([]string, 0, 16)
	if topic := CleanTopic(q.Topic); topic != "" {
		lines = append(lines, "**"+topic+" Assessment**")
	}
	if q.Number > 0 {
		lines = append(lines, "Question "+strconv.Itoa(q.Number))
	}
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	if q.Text != "" {
		lines = append(lines, q.Text, "")
	}
	for _, opt := range q.Options {
		lines = append(lines, statusPrefix(opt.Status)+opt.Letter+". "+opt.Text)
	}
	lines = append(lines, "")
	if q.IsAnswered {
		lines = append(lines, q.Feedback)
	} else {
		lines = append(lines, AnswerPrompt)
	}
	if q.Correct != "" {
		lines = append(lines, hiddenMarker(q.Correct))
	}
	return strings.Join(lines, "\n")
}

// DisplayText strips every hidden-answer line from body.
func DisplayText(body string) string {
	if !strings.Contains(body, HiddenMarkerPrefix) {
		return body
	}
	lines := strings.Split(body, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, HiddenMarkerPrefix) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// IncorrectFeedback is the feedback line for a wrong answer.
func IncorrectFeedback(correct string) string {
	return fmt.Sprintf("%s. The correct answer is %s.", incorrectFeedback, correct)
}

// NormalizeLetter accepts a single A-D letter in either case, surrounded by optional whitespace.
func NormalizeLetter(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, l := range Letters {
		if s == l {
			return l, true
		}
	}
	return "", false
}

// CompleteSummary is persisted when a quiz run ends.
func CompleteSummary(score, answered int) string {
	pct := 0
	if answered > 0 {
		pct = int(math.RoundToEven(float64(score) / float64(answered) * 100))
	}
	return fmt.Sprintf(`**%s!**

**Your Score:** %d/%d (%d%%)

%s

Want to try again or explore another topic?
Type: quiz [any topic you want]
Example: quiz Machine Learning, quiz History, quiz Biology, etc.`, CompleteMarker, score, answered, pct, performance(pct))
}

// TerminatedNotice is persisted when a new quiz replaces a live one.
func TerminatedNotice(topic string, score, answered int) string {
	return fmt.Sprintf("**%s**\n\nTopic: %s\nScore: %d/%d questions answered", TerminatedMarker, topic, score, answered)
}

func performance(pct int) string {
	switch {
	case pct >= 80:
		return "Outstanding! Excellent work!"
	case pct >= 60:
		return "Good job! Keep it up!"
	case pct >= 40:
		return "Not bad! Practice makes perfect!"
	default:
		return "Keep learning! You'll get better!"
	}
}

func hiddenMarker(letter string) string {
	return HiddenMarkerPrefix + letter + "]"
}

func statusPrefix(s OptionStatus) string {
	switch s {
	case StatusCorrect:
		return markCorrect
	case StatusIncorrect:
		return markIncorrect
	}
	return ""
}
