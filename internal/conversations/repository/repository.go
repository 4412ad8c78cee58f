// Package repository provides persistence for conversations and their
// append-only message log.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/platform/apperr"
)

// Conversation is the message thread tied to a (buyer, seller, product) triple.
type Conversation struct {
	ID                uuid.UUID
	ProductID         uuid.UUID
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	LastMessageID     *uuid.UUID
	LastMessageAt     *time.Time
	BuyerUnreadCount  int
	SellerUnreadCount int
	CreatedAt         time.Time
}

// Message is an append-only log entry. OfferData carries the structured
// proposal snapshot for offer-typed messages.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	MessageType    string
	Body           string
	OfferData      json.RawMessage
	CreatedAt      time.Time
}

// AppendMessageParams carries a new plain message.
type AppendMessageParams struct {
	ConversationID   uuid.UUID
	SenderID         uuid.UUID
	Body             string
	RecipientIsBuyer bool
}

// Repository is the access point to conversation and message rows.
type Repository interface {
	GetByID(ctx context.Context, conversationID uuid.UUID) (Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Conversation, int, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]Message, error)
	AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, readerIsBuyer bool) error
}

const conversationColumns = `id, product_id, buyer_id, seller_id, last_message_id,
	last_message_at, buyer_unread_count, seller_unread_count, created_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new conversations repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) GetByID(ctx context.Context, conversationID uuid.UUID) (Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conversation, err := scanConversation(r.pool.QueryRow(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, apperr.NotFound("conversation not found")
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}

	return conversation, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Conversation, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM conversations WHERE buyer_id = $1 OR seller_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var results []Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		results = append(results, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversations: %w", err)
	}

	return results, total, nil
}

func (r *Repo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, message_type, body, offer_data, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var results []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.MessageType, &m.Body, &m.OfferData, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return results, nil
}

// AppendMessage inserts a text message and updates the thread's last
// message pointer and the recipient's unread counter in one transaction.
func (r *Repo) AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("begin append message: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO messages (conversation_id, sender_id, message_type, body)
		VALUES ($1, $2, 'text', $3)
		RETURNING id, conversation_id, sender_id, message_type, body, offer_data, created_at`

	var m Message
	err = tx.QueryRow(ctx, insert, params.ConversationID, params.SenderID, params.Body).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.MessageType, &m.Body, &m.OfferData, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	counter := "seller_unread_count"
	if params.RecipientIsBuyer {
		counter = "buyer_unread_count"
	}
	update := `
		UPDATE conversations SET
			last_message_id = $2,
			last_message_at = $3,
			` + counter + ` = ` + counter + ` + 1
		WHERE id = $1`

	if _, err := tx.Exec(ctx, update, params.ConversationID, m.ID, m.CreatedAt); err != nil {
		return Message{}, fmt.Errorf("update conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("commit append message: %w", err)
	}

	return m, nil
}

func (r *Repo) MarkRead(ctx context.Context, conversationID uuid.UUID, readerIsBuyer bool) error {
	counter := "seller_unread_count"
	if readerIsBuyer {
		counter = "buyer_unread_count"
	}

	query := `UPDATE conversations SET ` + counter + ` = 0 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, conversationID)
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("conversation not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.ID, &c.ProductID, &c.BuyerID, &c.SellerID, &c.LastMessageID,
		&c.LastMessageAt, &c.BuyerUnreadCount, &c.SellerUnreadCount, &c.CreatedAt,
	)
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}
