package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"quizbot-service/internal/domain"
)

// Store is the single-file backend for local runs. Timestamps are stored as
// unix nanoseconds.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
// ":memory:" gives a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: sqlite serializes writers anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.CreatedAt.UnixNano())
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE id = ?`, userID))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE email = ?`, email))
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return u, nil
}

func (s *Store) CreateChat(ctx context.Context, chat domain.Chat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, user_id, title, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		chat.ID, chat.UserID, chat.Title, chat.IsActive, chat.CreatedAt.UnixNano(), chat.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (domain.Chat, error) {
	var (
		c                domain.Chat
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.IsActive, &created, &updated); err != nil {
		return domain.Chat{}, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return c, nil
}

func (s *Store) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	c, err := scanChat(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, is_active, created_at, updated_at FROM chats WHERE id = ?`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, fmt.Errorf("load chat: %w", err)
	}
	return c, nil
}

func (s *Store) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, is_active, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]domain.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *Store) UpdateChat(ctx context.Context, chat domain.Chat) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		chat.Title, chat.IsActive, chat.UpdatedAt.UnixNano(), chat.ID)
	if err != nil {
		return fmt.Errorf("update chat: %w", err)
	}
	return expectRow(res, domain.ErrChatNotFound)
}

func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return expectRow(res, domain.ErrChatNotFound)
}

func (s *Store) RecentTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM chats WHERE user_id = ? ORDER BY updated_at DESC LIMIT ?`, userID, limit)
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
func (s *Store) AppendMessage(ctx context.Context, m domain.Message) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ts := m.Timestamp.UnixNano()
	res, err := tx.ExecContext(ctx,
		`UPDATE chats SET updated_at = MAX(updated_at, ?) WHERE id = ?`, ts, m.ChatID)
	if err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	if err = expectRow(res, domain.ErrChatNotFound); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, string(m.Role), m.Content, ts); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY seq`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (domain.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages WHERE id = ?`, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, domain.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("load message: %w", err)
	}
	return m, nil
}

func scanMessage(row rowScanner) (domain.Message, error) {
	var (
		m    domain.Message
		role string
		ts   int64
	)
	if err := row.Scan(&m.ID, &m.ChatID, &role, &m.Content, &ts); err != nil {
		return domain.Message{}, err
	}
	m.Role = domain.Role(role)
	m.Timestamp = time.Unix(0, ts).UTC()
	return m, nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
