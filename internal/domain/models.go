package domain

import "time"

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chat is a conversation owned by a single user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
}

// Message is an append-only entry in a chat. The body may smuggle quiz state
// (see package quiz); it is never edited in place.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Document is extracted source text attached to a chat for "quiz pdf".
type Document struct {
	ChatID     string    `json:"chat_id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// GenerationRequest asks the oracle for the next question of a quiz run.
type GenerationRequest struct {
	ChatID   string
	Topic    string
	Number   int
	Document string
	Asked    []string
}
