package domain

import "errors"

var (
	// ErrChatNotFound is returned when a chat id does not resolve.
	ErrChatNotFound = errors.New("chat not found")
	// ErrMessageNotFound is returned when a message id does not resolve.
	ErrMessageNotFound = errors.New("message not found")
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on signup with an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrForbidden is returned when a user touches a chat they do not own.
	ErrForbidden = errors.New("chat belongs to another user")
	// ErrDocumentNotFound indicates no PDF text is stored for the chat.
	ErrDocumentNotFound = errors.New("no document uploaded for chat")
	// ErrEmptyMessage is returned when a message body is blank.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrMalformedQuestion marks oracle output that does not follow the question grammar.
	ErrMalformedQuestion = errors.New("malformed quiz question")
	// ErrAlreadyAnswered marks a second answer against a scored question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrOutOfRangeAnswer marks a submitted token that is not one of A-D.
	ErrOutOfRangeAnswer = errors.New("answer must be one of A, B, C or D")
	// ErrMissingAnswerKey marks a question without its hidden correct letter.
	ErrMissingAnswerKey = errors.New("question has no hidden answer")
	// ErrStaleReconciliation marks an optimistic overlay for a question that is no longer current.
	ErrStaleReconciliation = errors.New("optimistic state is stale")
	// ErrQuizExhausted is returned by an oracle that has no further questions.
	ErrQuizExhausted = errors.New("no more questions for topic")
	// ErrGenerationSuperseded marks a generated question discarded after stop or restart.
	ErrGenerationSuperseded = errors.New("generation superseded")
)
