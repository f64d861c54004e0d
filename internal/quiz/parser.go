package quiz

import (
	"regexp"
	"strconv"
	"strings"

	"quizbot-service/internal/domain"
)

var (
	optionPattern = regexp.MustCompile(`^([A-D])\.\s+(.+)$`)
	hiddenPattern = regexp.MustCompile(`\[CORRECT:\s*([A-Da-d])\s*\]`)
	headerPattern = regexp.MustCompile(`^\*\*(.+) Assessment\*\*$`)
	numberPattern = regexp.MustCompile(`^Question (\d+)$`)
)

// IsCandidate reports whether a message might encode a question: it must come
// from the assistant and carry at least one option line.
func IsCandidate(role domain.Role, body string) bool {
	if role != domain.RoleAssistant {
		return false
	}
	for _, line := range strings.Split(body, "\n") {
		if _, _, ok := matchOption(strings.TrimSpace(line)); ok {
			return true
		}
	}
	return false
}

// Parse decodes body into a Question. ok is false when the message is ordinary
// chat text; that is not an error.
func Parse(role domain.Role, body string) (Question, bool) {
	if !IsCandidate(role, body) {
		return Question{}, false
	}
	return parseBody(body)
}

// ParseGenerated validates oracle output. Unlike Parse it requires the hidden
// answer and refuses bodies that are already answered.
func ParseGenerated(body string) (Question, error) {
	q, ok := parseBody(body)
	if !ok || q.IsAnswered || q.Text == "" {
		return Question{}, domain.ErrMalformedQuestion
	}
	if q.Correct == "" {
		return Question{}, domain.ErrMissingAnswerKey
	}
	return q, nil
}

func parseBody(body string) (Question, bool) {
	var (
		q     Question
		text  []string
		order []string
	)
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, HiddenMarkerPrefix) {
			if m := hiddenPattern.FindStringSubmatch(line); m != nil {
				q.Correct = strings.ToUpper(m[1])
			}
			continue
		}
		if strings.HasPrefix(line, CorrectFeedback) || strings.HasPrefix(line, incorrectFeedback) {
			q.Feedback = line
			q.IsAnswered = true
			continue
		}
		if letter, optText, status, ok := matchOptionLine(line); ok {
			q.Options = append(q.Options, Option{Letter: letter, Text: optText, Status: status})
			order = append(order, letter)
			continue
		}
		if isFooter(line) {
			continue
		}
		if len(q.Options) > 0 {
			// Trailing prose after the options block is not part of the question.
			continue
		}
		if len(text) == 0 {
			if m := headerPattern.FindStringSubmatch(line); m != nil && q.Topic == "" {
				q.Topic = m[1]
				continue
			}
			if m := numberPattern.FindStringSubmatch(line); m != nil && q.Number == 0 {
				q.Number, _ = strconv.Atoi(m[1])
				continue
			}
		}
		text = append(text, line)
	}

	if len(q.Options) != len(Letters) {
		return Question{}, false
	}
	for i, letter := range order {
		if letter != Letters[i] {
			return Question{}, false
		}
	}
	q.Text = strings.Join(text, "\n")
	return q, true
}

func matchOptionLine(line string) (string, string, OptionStatus, bool) {
	if rest, ok := strings.CutPrefix(line, markCorrect); ok {
		if letter, text, ok := matchOption(strings.TrimSpace(rest)); ok {
			return letter, text, StatusCorrect, true
		}
	}
	if rest, ok := strings.CutPrefix(line, markIncorrect); ok {
		if letter, text, ok := matchOption(strings.TrimSpace(rest)); ok {
			return letter, text, StatusIncorrect, true
		}
	}
	if letter, text, ok := matchOption(line); ok {
		return letter, text, StatusNormal, true
	}
	return "", "", "", false
}

func matchOption(line string) (string, string, bool) {
	if rest, ok := strings.CutPrefix(line, markCorrect); ok {
		line = strings.TrimSpace(rest)
	} else if rest, ok := strings.CutPrefix(line, markIncorrect); ok {
		line = strings.TrimSpace(rest)
	}
	m := optionPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

func isFooter(line string) bool {
	return strings.Contains(line, "Type your answer") || strings.Contains(line, "or 'stop' to end")
}
