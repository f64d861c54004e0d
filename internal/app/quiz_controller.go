package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"quizbot-service/internal/domain"
	"quizbot-service/internal/quiz"
)

// MessageStore persists the append-only message stream of each chat.
type MessageStore interface {
	AppendMessage(ctx context.Context, m domain.Message) error
	ListMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	GetMessage(ctx context.Context, messageID string) (domain.Message, error)
}

// SessionRepository serializes turns per chat and versions question generation.
// Advance invalidates every generation started under an older epoch.
type SessionRepository interface {
	Lock(ctx context.Context, chatID string) (unlock func(), err error)
	Epoch(ctx context.Context, chatID string) (int64, error)
	Advance(ctx context.Context, chatID string) (int64, error)
	Drop(ctx context.Context, chatID string) error
}

// Oracle produces the next question body for a quiz run. It returns
// domain.ErrQuizExhausted when the run should end.
type Oracle interface {
	NextQuestion(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// DocumentStore keeps extracted PDF text per chat.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc domain.Document) error
	GetDocument(ctx context.Context, chatID string) (domain.Document, error)
	DeleteDocument(ctx context.Context, chatID string) error
}

// Publisher receives every persisted message.
type Publisher interface {
	Publish(msgs ...domain.Message)
}

// ControllerOptions tune a QuizController.
type ControllerOptions struct {
	// MaxQuestions ends a run after that many answers; 0 keeps asking until stopped.
	MaxQuestions int
	// HistoryWindow caps how many asked questions are sent back to the oracle.
	HistoryWindow int
	Now           func() time.Time
}

// QuizController runs the quiz state machine of every chat on top of its message stream.
type QuizController struct {
	messages      MessageStore
	sessions      SessionRepository
	oracle        Oracle
	documents     DocumentStore
	hub           Publisher
	maxQuestions  int
	historyWindow int
	now           func() time.Time
}

func NewQuizController(messages MessageStore, sessions SessionRepository, oracle Oracle, documents DocumentStore, hub Publisher, opts ControllerOptions) *QuizController {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 10
	}
	return &QuizController{
		messages:      messages,
		sessions:      sessions,
		oracle:        oracle,
		documents:     documents,
		hub:           hub,
		maxQuestions:  opts.MaxQuestions,
		historyWindow: opts.HistoryWindow,
		now:           opts.Now,
	}
}

// Turn is what one user message produced.
type Turn struct {
	UserMessage domain.Message    `json:"user_message"`
	Replies     []domain.Message  `json:"replies"`
	State       quiz.SessionState `json:"state"`
}

// State derives the current quiz state of a chat.
func (c *QuizController) State(ctx context.Context, chatID string) (quiz.SessionState, error) {
	history, err := c.messages.ListMessages(ctx, chatID)
	if err != nil {
		return quiz.SessionState{}, fmt.Errorf("list messages: %w", err)
	}
	return quiz.DeriveState(history), nil
}

// HandleMessage persists a user message and runs it through the state machine.
// Turns of one chat are serialized; question generation runs outside the lock
// and its result is dropped if a stop or a new quiz happened meanwhile.
func (c *QuizController) HandleMessage(ctx context.Context, chatID, content string) (Turn, error) {
	return c.HandleMessageAccepted(ctx, chatID, content, nil)
}

// HandleMessageAccepted is HandleMessage with a callback invoked once the user
// message is persisted, or once the turn fails before that. Callers that must
// keep the order of their messages start the next turn only after it fires.
func (c *QuizController) HandleMessageAccepted(ctx context.Context, chatID, content string, accepted func()) (Turn, error) {
	var once sync.Once
	accept := func() {
		if accepted != nil {
			once.Do(accepted)
		}
	}
	defer accept()

	content = strings.TrimSpace(content)
	if content == "" {
		return Turn{}, domain.ErrEmptyMessage
	}

	t := &turn{c: c, chatID: chatID}
	if err := t.lock(ctx); err != nil {
		return Turn{}, err
	}
	defer t.release()

	user, err := t.append(ctx, domain.RoleUser, content)
	accept()
	if err != nil {
		return Turn{}, err
	}
	t.user = user

	history, err := c.messages.ListMessages(ctx, chatID)
	if err != nil {
		return Turn{}, fmt.Errorf("list messages: %w", err)
	}
	state := quiz.DeriveState(history)

	cmd := quiz.ParseCommand(content)
	switch cmd.Kind {
	case quiz.CmdStop:
		err = c.stop(ctx, t, state)
	case quiz.CmdAnswer:
		err = c.answer(ctx, t, state, cmd.Letter)
	case quiz.CmdStartQuiz:
		err = c.start(ctx, t, state, cmd)
	case quiz.CmdRemoveDocument:
		err = c.removeDocument(ctx, t, state)
	default:
		err = c.chat(ctx, t, state)
	}
	if err != nil {
		return Turn{}, err
	}
	return t.result(context.WithoutCancel(ctx))
}

func (c *QuizController) stop(ctx context.Context, t *turn, state quiz.SessionState) error {
	if _, err := c.sessions.Advance(ctx, t.chatID); err != nil {
		return fmt.Errorf("advance epoch: %w", err)
	}
	if !state.Live() {
		return t.reply(ctx, domain.RoleAssistant, noActiveQuizReply())
	}
	log.Printf("[QuizController.stop] chat=%s topic=%q score=%d/%d", t.chatID, state.Topic, state.Score, state.Answered)
	return t.reply(ctx, domain.RoleAssistant, quiz.CompleteSummary(state.Score, state.Answered))
}

func (c *QuizController) answer(ctx context.Context, t *turn, state quiz.SessionState, letter string) error {
	switch state.Phase {
	case quiz.PhaseAwaitingAnswer:
	case quiz.PhaseAnswered:
		log.Printf("[QuizController.answer] chat=%s ignoring %s: %v", t.chatID, letter, domain.ErrAlreadyAnswered)
		return nil
	default:
		return c.chat(ctx, t, state)
	}

	eval, err := quiz.Evaluate(*state.Current, letter)
	if err != nil {
		if errors.Is(err, domain.ErrMissingAnswerKey) {
			log.Printf("[QuizController.answer] chat=%s message=%s: %v", t.chatID, state.CurrentMessageID, err)
			return t.reply(ctx, domain.RoleAssistant, generationFailedReply(state.Topic))
		}
		return err
	}
	if err := t.reply(ctx, domain.RoleAssistant, eval.Body); err != nil {
		return err
	}

	score, answered := state.Score, state.Answered+1
	if eval.IsCorrect {
		score++
	}
	if c.maxQuestions > 0 && answered >= c.maxQuestions {
		if _, err := c.sessions.Advance(ctx, t.chatID); err != nil {
			return fmt.Errorf("advance epoch: %w", err)
		}
		return t.reply(ctx, domain.RoleAssistant, quiz.CompleteSummary(score, answered))
	}
	return c.ask(ctx, t, generation{
		topic:    state.Topic,
		number:   state.NextNumber(),
		asked:    state.Asked,
		score:    score,
		answered: answered,
	})
}

func (c *QuizController) start(ctx context.Context, t *turn, state quiz.SessionState, cmd quiz.Command) error {
	topic := cmd.Topic
	if cmd.FromDocument() {
		if _, err := c.documents.GetDocument(ctx, t.chatID); err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				return t.notice(ctx, state, replyNoDocument)
			}
			return fmt.Errorf("get document: %w", err)
		}
		topic = documentTitle
	}
	if state.Live() {
		log.Printf("[QuizController.start] chat=%s replacing %q with %q", t.chatID, state.Topic, topic)
		if err := t.reply(ctx, domain.RoleAssistant, quiz.TerminatedNotice(state.Topic, state.Score, state.Answered)); err != nil {
			return err
		}
	}
	return c.ask(ctx, t, generation{topic: topic, number: 1})
}

func (c *QuizController) removeDocument(ctx context.Context, t *turn, state quiz.SessionState) error {
	err := c.documents.DeleteDocument(ctx, t.chatID)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return t.notice(ctx, state, replyNoDocumentFound)
	case err != nil:
		return fmt.Errorf("delete document: %w", err)
	}
	return t.notice(ctx, state, replyDocumentRemoved)
}

// chat answers anything outside the quiz protocol. A pending question stays
// live and a finished run stays terminated.
func (c *QuizController) chat(ctx context.Context, t *turn, state quiz.SessionState) error {
	switch state.Phase {
	case quiz.PhaseAwaitingAnswer:
		return t.reply(ctx, domain.RoleSystem, replyAnswerNudge)
	case quiz.PhaseAnswered:
		return t.reply(ctx, domain.RoleSystem, replyNextOnItsWay)
	}
	return t.notice(ctx, state, helpReply())
}

type generation struct {
	topic    string
	number   int
	asked    []string
	score    int
	answered int
}

func (c *QuizController) ask(ctx context.Context, t *turn, g generation) error {
	req := domain.GenerationRequest{
		ChatID: t.chatID,
		Topic:  g.topic,
		Number: g.number,
		Asked:  c.window(g.asked),
	}
	if strings.EqualFold(g.topic, documentTitle) {
		doc, err := c.documents.GetDocument(ctx, t.chatID)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				return t.reply(ctx, domain.RoleAssistant, replyNoDocument)
			}
			return fmt.Errorf("get document: %w", err)
		}
		req.Document = doc.Text
	}

	epoch, err := c.sessions.Advance(ctx, t.chatID)
	if err != nil {
		return fmt.Errorf("advance epoch: %w", err)
	}

	t.release()
	body, genErr := c.oracle.NextQuestion(ctx, req)

	// The user turn already happened; finish it even if the caller went away.
	ctx = context.WithoutCancel(ctx)
	if err := t.lock(ctx); err != nil {
		return err
	}
	current, err := c.sessions.Epoch(ctx, t.chatID)
	if err != nil {
		return fmt.Errorf("read epoch: %w", err)
	}
	if current != epoch {
		log.Printf("[QuizController.ask] chat=%s topic=%q epoch %d->%d: %v", t.chatID, g.topic, epoch, current, domain.ErrGenerationSuperseded)
		return nil
	}

	if errors.Is(genErr, domain.ErrQuizExhausted) {
		return t.reply(ctx, domain.RoleAssistant, quiz.CompleteSummary(g.score, g.answered))
	}
	if genErr != nil {
		log.Printf("[QuizController.ask] chat=%s topic=%q oracle error: %v", t.chatID, g.topic, genErr)
		return t.reply(ctx, domain.RoleAssistant, generationFailedReply(g.topic))
	}
	q, err := quiz.ParseGenerated(body)
	if err != nil {
		log.Printf("[QuizController.ask] chat=%s topic=%q rejected oracle output: %v", t.chatID, g.topic, err)
		return t.reply(ctx, domain.RoleAssistant, generationFailedReply(g.topic))
	}
	q.Topic = g.topic
	q.Number = g.number
	return t.reply(ctx, domain.RoleAssistant, quiz.Encode(q))
}

func (c *QuizController) window(asked []string) []string {
	if len(asked) <= c.historyWindow {
		return asked
	}
	return asked[len(asked)-c.historyWindow:]
}

// turn tracks the lock and the messages of one HandleMessage call.
type turn struct {
	c       *QuizController
	chatID  string
	unlock  func()
	user    domain.Message
	replies []domain.Message
}

func (t *turn) lock(ctx context.Context) error {
	unlock, err := t.c.sessions.Lock(ctx, t.chatID)
	if err != nil {
		return fmt.Errorf("lock chat %s: %w", t.chatID, err)
	}
	t.unlock = unlock
	return nil
}

func (t *turn) release() {
	if t.unlock != nil {
		t.unlock()
		t.unlock = nil
	}
}

func (t *turn) append(ctx context.Context, role domain.Role, content string) (domain.Message, error) {
	m := domain.Message{
		ID:        domain.NewID(domain.PrefixMessage),
		ChatID:    t.chatID,
		Role:      role,
		Content:   content,
		Timestamp: t.c.now(),
	}
	if err := t.c.messages.AppendMessage(ctx, m); err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	if t.c.hub != nil {
		t.c.hub.Publish(m)
	}
	return m, nil
}

func (t *turn) reply(ctx context.Context, role domain.Role, content string) error {
	m, err := t.append(ctx, role, content)
	if err != nil {
		return err
	}
	t.replies = append(t.replies, m)
	return nil
}

// notice uses the system role unless the chat is inactive, so the reply never
// changes the derived phase.
func (t *turn) notice(ctx context.Context, state quiz.SessionState, content string) error {
	role := domain.RoleSystem
	if state.Phase == quiz.PhaseInactive {
		role = domain.RoleAssistant
	}
	return t.reply(ctx, role, content)
}

func (t *turn) result(ctx context.Context) (Turn, error) {
	history, err := t.c.messages.ListMessages(ctx, t.chatID)
	if err != nil {
		return Turn{}, fmt.Errorf("list messages: %w", err)
	}
	return Turn{UserMessage: t.user, Replies: t.replies, State: quiz.DeriveState(history)}, nil
}
