package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/trousev/mealcontrol/internal/domain"
)

// ConversationStore is the durable append-only message log. Messages cascade
// on conversation deletion.
type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) Create(ctx context.Context, title string, createdAt int64, isMealDetection bool) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (title, created_at, is_meal_detection) VALUES (?, ?, ?)
	`, title, createdAt, isMealDetection)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *ConversationStore) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, is_meal_detection FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.IsMealDetection)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// List returns conversations newest-first, filtered by the meal-detection flag.
func (s *ConversationStore) List(ctx context.Context, mealDetection bool) ([]*domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, is_meal_detection FROM conversations
		WHERE is_meal_detection = ? ORDER BY created_at DESC
	`, mealDetection)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var convs []*domain.Conversation
	for rows.Next() {
		conv := &domain.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.IsMealDetection); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return convs, nil
}

// Delete removes a conversation and, via cascade, all of its messages.
// Deleting a conversation that does not exist is a no-op.
func (s *ConversationStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID int64, content string, fromUser bool, timestamp int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, content, from_user, timestamp) VALUES (?, ?, ?, ?)
	`, conversationID, content, fromUser, timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *ConversationStore) Messages(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, content, from_user, timestamp FROM messages
		WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var msgs []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.FromUser, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return msgs, nil
}

func (s *ConversationStore) LastMessage(ctx context.Context, conversationID int64) (*domain.Message, error) {
	msg := &domain.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, content, from_user, timestamp FROM messages
		WHERE conversation_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1
	`, conversationID).Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.FromUser, &msg.Timestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}
	return msg, nil
}
