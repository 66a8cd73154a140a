// Package services contains business logic service layer implementations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modelfork/modelfork/pkg/models"
)

const queryTimeout = 5 * time.Second

// ChatService manages chats and their message history
type ChatService struct {
	db *sql.DB
}

// NewChatService creates a new ChatService
func NewChatService(db *sql.DB) *ChatService {
	return &ChatService{db: db}
}

// CreateChat creates a chat for an owner. An empty title gets the
// placeholder; title generation replaces it after the first user message.
func (s *ChatService) CreateChat(httpCtx context.Context, req models.CreateChatRequest) (*models.Chat, error) {
	if req.OwnerKey == "" {
		return nil, NewValidationError("session_id", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	title := req.Title
	if title == "" {
		title = models.PlaceholderTitle
	}

	chat := &models.Chat{
		ID:       uuid.New().String(),
		OwnerKey: req.OwnerKey,
		Title:    title,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO chats (id, owner_key, title)
		 VALUES ($1, $2, $3)
		 RETURNING created_at, last_activity, title_generated`,
		chat.ID, chat.OwnerKey, chat.Title,
	).Scan(&chat.CreatedAt, &chat.LastActivity, &chat.TitleGenerated)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return chat, nil
}

// GetChat returns a chat by ID
func (s *ChatService) GetChat(httpCtx context.Context, chatID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	chat := &models.Chat{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_key, title, title_generated, created_at, last_activity
		 FROM chats WHERE id = $1`, chatID,
	).Scan(&chat.ID, &chat.OwnerKey, &chat.Title, &chat.TitleGenerated, &chat.CreatedAt, &chat.LastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return chat, nil
}

// ListChats returns all chats for an owner, most recently active first
func (s *ChatService) ListChats(httpCtx context.Context, ownerKey string) ([]models.Chat, error) {
	if ownerKey == "" {
		return nil, NewValidationError("session_id", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_key, title, title_generated, created_at, last_activity
		 FROM chats WHERE owner_key = $1
		 ORDER BY last_activity DESC`, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.OwnerKey, &c.Title, &c.TitleGenerated, &c.CreatedAt, &c.LastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chats: %w", err)
	}

	return chats, nil
}

// AppendMessage appends one message to a chat and bumps the chat's
// last_activity. Messages are immutable once written.
func (s *ChatService) AppendMessage(httpCtx context.Context, chatID string, role models.Role, content string) (*models.Message, error) {
	if chatID == "" {
		return nil, NewValidationError("chat_id", "required")
	}
	if !role.Valid() && role != models.RoleSystem {
		return nil, NewValidationError("role", "must be 'user' or 'assistant'")
	}
	if content == "" {
		return nil, NewValidationError("content", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	msg := &models.Message{
		ID:      uuid.New().String(),
		ChatID:  chatID,
		Role:    role,
		Content: content,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		msg.ID, msg.ChatID, msg.Role, msg.Content,
	).Scan(&msg.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE chats SET last_activity = now() WHERE id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return msg, nil
}

// ListMessages returns a chat's messages in creation order (oldest first).
// Returns ErrNotFound when the chat does not exist, so an empty history is
// distinguishable from a missing chat.
func (s *ChatService) ListMessages(httpCtx context.Context, chatID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to verify chat existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, created_at
		 FROM messages WHERE chat_id = $1
		 ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return msgs, nil
}

// CountMessages returns the number of messages in a chat
func (s *ChatService) CountMessages(httpCtx context.Context, chatID string) (int, error) {
	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// TouchChat bumps a chat's last_activity to now.
func (s *ChatService) TouchChat(httpCtx context.Context, chatID string) error {
	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET last_activity = now() WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetGeneratedTitle installs the generated title on a chat, at most once.
// The conditional update is the concurrency guard: of N racing generators
// only one sees title_generated = FALSE, and that one's title wins.
// Returns true when this call won the flag.
func (s *ChatService) SetGeneratedTitle(httpCtx context.Context, chatID, title string) (bool, error) {
	if title == "" {
		return false, NewValidationError("title", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = $1, title_generated = TRUE
		 WHERE id = $2 AND title_generated = FALSE`, title, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to set generated title: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteChat removes a chat and, via cascade, all its messages
func (s *ChatService) DeleteChat(httpCtx context.Context, chatID string) error {
	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChatsForOwner removes every chat belonging to an owner.
// Returns the number of chats deleted.
func (s *ChatService) DeleteChatsForOwner(httpCtx context.Context, ownerKey string) (int, error) {
	if ownerKey == "" {
		return 0, NewValidationError("session_id", "required")
	}

	ctx, cancel := context.WithTimeout(httpCtx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE owner_key = $1`, ownerKey)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chats: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteIdleChats removes chats whose last_activity is older than the cutoff.
// Returns the number of chats deleted. Used by the retention cleanup loop.
func (s *ChatService) DeleteIdleChats(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chats WHERE last_activity < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle chats: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// isForeignKeyViolation detects a postgres FK error (SQLSTATE 23503) without
// depending on the driver's error type.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	type sqlStater interface{ SQLState() string }
	var st sqlStater
	if errors.As(err, &st) {
		return st.SQLState() == "23503"
	}
	return false
}
