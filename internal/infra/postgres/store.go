package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbot-service/internal/domain"
)

const uniqueViolation = "23505"

// Store persists users, chats and messages in Postgres. The schema lives in
// the migrations package and is applied by the migrate command.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1`, userID))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE email = $1`, email))
}

func (s *Store) scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateChat(ctx context.Context, chat domain.Chat) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chats (id, user_id, title, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		chat.ID, chat.UserID, chat.Title, chat.IsActive, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (s *Store) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	var c domain.Chat
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, is_active, created_at, updated_at FROM chats WHERE id = $1`, chatID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, fmt.Errorf("load chat: %w", err)
	}
	return c, nil
}

func (s *Store) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, is_active, created_at, updated_at FROM chats WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]domain.Chat, 0)
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *Store) UpdateChat(ctx context.Context, chat domain.Chat) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chats SET title = $2, is_active = $3, updated_at = $4 WHERE id = $1`,
		chat.ID, chat.Title, chat.IsActive, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

// DeleteChat removes the chat; its messages go with it through ON DELETE CASCADE.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

func (s *Store) RecentTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title FROM chats WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// AppendMessage inserts m and touches its chat in one transaction.
func (s *Store) AppendMessage(ctx context.Context, m domain.Message) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE chats SET updated_at = GREATEST(updated_at, $2) WHERE id = $1`, m.ChatID, m.Timestamp)
		if err != nil {
			return fmt.Errorf("touch chat: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrChatNotFound
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
			m.ID, m.ChatID, string(m.Role), m.Content, m.Timestamp)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

func (s *Store) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = $1 ORDER BY seq`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (domain.Message, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages WHERE id = $1`, messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, domain.ErrMessageNotFound
	}
	return m, err
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		m    domain.Message
		role string
		ts   time.Time
	)
	if err := row.Scan(&m.ID, &m.ChatID, &role, &m.Content, &ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, err
		}
		return domain.Message{}, fmt.Errorf("scan message: %w", err)
	}
	m.Role = domain.Role(role)
	m.Timestamp = ts
	return m, nil
}
