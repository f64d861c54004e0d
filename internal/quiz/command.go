package quiz

import "strings"

// CommandKind classifies a user message.
type CommandKind string

const (
	CmdChat           CommandKind = "chat"
	CmdAnswer         CommandKind = "answer"
	CmdStop           CommandKind = "stop"
	CmdStartQuiz      CommandKind = "start_quiz"
	CmdRemoveDocument CommandKind = "remove_document"
)

// DocumentTopic is the topic that sources questions from the uploaded PDF.
const DocumentTopic = "pdf"

// Prefixes that start a quiz, longest first so "teach me about x" keeps only "x".
var quizPrefixes = []string{
	"ask me questions about ",
	"i want to learn about ",
	"i want to learn ",
	"teach me about ",
	"questions about ",
	"learn about ",
	"test me on ",
	"teach me ",
	"quiz ",
}

// Command is a parsed user message.
type Command struct {
	Kind   CommandKind
	Letter string
	Topic  string
	Raw    string
}

// FromDocument reports whether the quiz should be sourced from the chat's PDF.
func (c Command) FromDocument() bool {
	return c.Kind == CmdStartQuiz && strings.EqualFold(c.Topic, DocumentTopic)
}

// CleanTopic collapses every run of whitespace, newlines included, into one
// space so the topic fits the single-line question header.
func CleanTopic(topic string) string {
	return strings.Join(strings.Fields(topic), " ")
}

// ParseCommand maps a chat message onto the quiz protocol. A bare letter A-D
// is an answer; anything unrecognised is ordinary chat.
func ParseCommand(body string) Command {
	raw := strings.TrimSpace(body)
	lower := strings.ToLower(raw)
	cmd := Command{Kind: CmdChat, Raw: raw}

	switch lower {
	case "stop":
		cmd.Kind = CmdStop
		return cmd
	case "remove pdf", "delete pdf", "clear pdf":
		cmd.Kind = CmdRemoveDocument
		return cmd
	}

	if letter, ok := NormalizeLetter(raw); ok {
		cmd.Kind = CmdAnswer
		cmd.Letter = letter
		return cmd
	}

	for _, prefix := range quizPrefixes {
		if len(raw) < len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
			continue
		}
		topic := CleanTopic(raw[len(prefix):])
		if topic == "" {
			break
		}
		if strings.EqualFold(topic, DocumentTopic) {
			topic = DocumentTopic
		}
		cmd.Kind = CmdStartQuiz
		cmd.Topic = topic
		return cmd
	}
	return cmd
}
