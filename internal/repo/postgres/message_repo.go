package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConversationNotFound = errors.New("conversation not found")

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

type ConversationRecord struct {
	ID            string
	UserAID       string
	UserBID       string
	LastMessageAt time.Time
	LastMessage   string
	CreatedAt     time.Time
}

type MessageRecord struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	GiftID         string
	CreatedAt      time.Time
}

// EnsureConversation returns the conversation between the pair,
// creating it on first contact. Users are stored in canonical order.
func (r *MessageRepo) EnsureConversation(ctx context.Context, conversationID, userA, userB string, at time.Time) (ConversationRecord, error) {
	if r.pool == nil {
		return ConversationRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" || userA == userB {
		return ConversationRecord{}, fmt.Errorf("invalid conversation payload")
	}

	first, second := userA, userB
	if second < first {
		first, second = second, first
	}

	var record ConversationRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO conversations (id, user_a_id, user_b_id, last_message_at, last_message, created_at)
VALUES ($1, $2, $3, $4, '', $4)
ON CONFLICT (user_a_id, user_b_id) DO UPDATE SET user_a_id = EXCLUDED.user_a_id
RETURNING id, user_a_id, user_b_id, last_message_at, last_message, created_at
`, conversationID, first, second, at.UTC()).Scan(
		&record.ID,
		&record.UserAID,
		&record.UserBID,
		&record.LastMessageAt,
		&record.LastMessage,
		&record.CreatedAt,
	)
	if err != nil {
		return ConversationRecord{}, fmt.Errorf("ensure conversation: %w", err)
	}

	return record, nil
}

func (r *MessageRepo) GetConversation(ctx context.Context, conversationID string) (ConversationRecord, error) {
	if r.pool == nil {
		return ConversationRecord{}, ErrConversationNotFound
	}

	var record ConversationRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, last_message_at, last_message, created_at
FROM conversations
WHERE id = $1
LIMIT 1
`, conversationID).Scan(
		&record.ID,
		&record.UserAID,
		&record.UserBID,
		&record.LastMessageAt,
		&record.LastMessage,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConversationRecord{}, ErrConversationNotFound
		}
		return ConversationRecord{}, fmt.Errorf("get conversation: %w", err)
	}

	return record, nil
}

func (r *MessageRepo) ListConversations(ctx context.Context, userID string, limit int) ([]ConversationRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []ConversationRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_a_id, user_b_id, last_message_at, last_message, created_at
FROM conversations
WHERE user_a_id = $1 OR user_b_id = $1
ORDER BY last_message_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]ConversationRecord, 0, limit)
	for rows.Next() {
		var record ConversationRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserAID,
			&record.UserBID,
			&record.LastMessageAt,
			&record.LastMessage,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, record)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate conversations: %w", rows.Err())
	}

	return items, nil
}

func (r *MessageRepo) InsertMessage(ctx context.Context, msg MessageRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(msg.ID) == "" || strings.TrimSpace(msg.ConversationID) == "" || strings.TrimSpace(msg.SenderID) == "" {
		return fmt.Errorf("invalid message payload")
	}

	return WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO messages (id, conversation_id, sender_id, text, gift_id, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
`, msg.ID, msg.ConversationID, msg.SenderID, msg.Text, msg.GiftID, msg.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE conversations SET last_message_at = $2, last_message = $3 WHERE id = $1
`, msg.ConversationID, msg.CreatedAt.UTC(), msg.Text); err != nil {
			return fmt.Errorf("update conversation tail: %w", err)
		}

		return nil
	})
}

func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string, before time.Time, limit int) ([]MessageRecord, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Minute)
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, conversation_id, sender_id, text, COALESCE(gift_id, ''), created_at
FROM messages
WHERE conversation_id = $1 AND created_at < $2
ORDER BY created_at DESC
LIMIT $3
`, conversationID, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]MessageRecord, 0, limit)
	for rows.Next() {
		var record MessageRecord
		if err := rows.Scan(
			&record.ID,
			&record.ConversationID,
			&record.SenderID,
			&record.Text,
			&record.GiftID,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, record)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}
