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

	"marketplace_backend/internal/offers/domain"
	"marketplace_backend/platform/apperr"
)

const (
	offerNotFoundMessage    = "offer not found"
	productNotFoundMessage  = "product not found"
	concurrentUpdateMessage = "offer was modified concurrently"
)

const offerColumns = `id, product_id, buyer_id, seller_id, conversation_id,
	offered_cents, original_cents, counter_cents, currency, status, message,
	created_at, expires_at, responded_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new offers repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetProduct loads the product snapshot used to validate a new offer.
func (r *Repo) GetProduct(ctx context.Context, productID uuid.UUID) (ProductInfo, error) {
	query := `
		SELECT id, seller_id, price_cents, currency, feed_type, is_available
		FROM products
		WHERE id = $1`

	var p ProductInfo
	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&p.ID, &p.SellerID, &p.PriceCents, &p.Currency, &p.FeedType, &p.IsAvailable,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductInfo{}, apperr.NotFound(productNotFoundMessage)
		}
		return ProductInfo{}, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// CreateOffer inserts the offer with its conversation side effects in one
// transaction: find-or-create the conversation, insert the offer row,
// append the offer message and bump the seller's unread counter.
func (r *Repo) CreateOffer(ctx context.Context, params CreateOfferParams) (domain.Offer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("begin create offer: %w", err)
	}
	defer tx.Rollback(ctx)

	conversationID, err := findOrCreateConversation(ctx, tx, params.ProductID, params.BuyerID, params.SellerID)
	if err != nil {
		return domain.Offer{}, err
	}

	insertOffer := `
		INSERT INTO offers (product_id, buyer_id, seller_id, conversation_id,
			offered_cents, original_cents, currency, status, message, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var offerID uuid.UUID
	err = tx.QueryRow(ctx, insertOffer,
		params.ProductID, params.BuyerID, params.SellerID, conversationID,
		params.OfferedCents, params.OriginalCents, params.Currency,
		domain.StatusPending, params.Message, params.CreatedAt, params.ExpiresAt,
	).Scan(&offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("insert offer: %w", err)
	}

	offer := domain.Offer{
		ID:             offerID,
		ProductID:      params.ProductID,
		BuyerID:        params.BuyerID,
		SellerID:       params.SellerID,
		ConversationID: conversationID,
		OfferedCents:   params.OfferedCents,
		OriginalCents:  params.OriginalCents,
		Currency:       params.Currency,
		Status:         domain.StatusPending,
		Message:        params.Message,
		CreatedAt:      params.CreatedAt,
		ExpiresAt:      params.ExpiresAt,
	}

	otx := &offerTx{tx: tx}

	body := ""
	if params.Message != nil {
		body = *params.Message
	}
	snapshot := domain.NewSnapshot(offer)
	messageID, err := otx.InsertMessage(ctx, InsertMessageParams{
		ConversationID: conversationID,
		SenderID:       params.BuyerID,
		MessageType:    "offer",
		Body:           body,
		Snapshot:       &snapshot,
		CreatedAt:      params.CreatedAt,
	})
	if err != nil {
		return domain.Offer{}, err
	}

	if err := otx.BumpUnread(ctx, conversationID, false, messageID, params.CreatedAt); err != nil {
		return domain.Offer{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Offer{}, fmt.Errorf("commit create offer: %w", err)
	}

	return offer, nil
}

// GetByID loads an offer without locking.
func (r *Repo) GetByID(ctx context.Context, offerID uuid.UUID) (domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer, err := scanOffer(r.pool.QueryRow(ctx, query, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Offer{}, apperr.NotFound(offerNotFoundMessage)
		}
		return domain.Offer{}, fmt.Errorf("get offer by id: %w", err)
	}

	return offer, nil
}

// WithOfferForUpdate loads the offer under FOR UPDATE and runs fn inside
// the same transaction.
func (r *Repo) WithOfferForUpdate(ctx context.Context, offerID uuid.UUID, fn func(tx OfferTx, offer domain.Offer) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin offer update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR UPDATE`

	offer, err := scanOffer(tx.QueryRow(ctx, query, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(offerNotFoundMessage)
		}
		return fmt.Errorf("lock offer: %w", err)
	}

	if err := fn(&offerTx{tx: tx}, offer); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit offer update: %w", err)
	}

	return nil
}

// List retrieves a user's offers, most recent first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Offer, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}

	// as_buyer / as_seller narrow the party filter; neither (or both)
	// means offers on either side.
	partyClause := "(buyer_id = $1 OR seller_id = $1)"
	if params.AsBuyer && !params.AsSeller {
		partyClause = "buyer_id = $1"
	} else if params.AsSeller && !params.AsBuyer {
		partyClause = "seller_id = $1"
	}

	countQuery := `
		SELECT COUNT(*)
		FROM offers
		WHERE ` + partyClause + `
			AND ($2::text IS NULL OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, params.UserID, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count offers: %w", err)
	}

	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE ` + partyClause + `
			AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, params.UserID, statusParam, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	items, err := scanOffers(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListByProduct retrieves the full offer history of a product, most recent first.
func (r *Repo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE product_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product offers: %w", err)
	}
	defer rows.Close()

	return scanOffers(rows)
}

// ListAdmin retrieves all offers, open negotiations before resolved ones,
// then by recency.
func (r *Repo) ListAdmin(ctx context.Context, limit, offset int) ([]domain.Offer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count offers: %w", err)
	}

	query := `
		SELECT ` + offerColumns + `
		FROM offers
		ORDER BY (status IN ('pending', 'countered')) DESC, created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list offers admin: %w", err)
	}
	defer rows.Close()

	items, err := scanOffers(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListExpirable returns ids of non-terminal offers overdue at now.
func (r *Repo) ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM offers
		WHERE status IN ('pending', 'countered') AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expirable offers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expirable offer id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expirable offers: %w", err)
	}

	return ids, nil
}

// offerTx implements OfferTx on top of an open pgx transaction.
type offerTx struct {
	tx pgx.Tx
}

// UpdateStatus transitions the locked offer. The expected-status guard
// backs the row lock: zero rows affected means another writer got there
// first and the caller must report the conflict.
func (t *offerTx) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	query := `
		UPDATE offers SET
			status = $3,
			counter_cents = COALESCE($4, counter_cents),
			message = COALESCE($5, message),
			expires_at = COALESCE($6, expires_at),
			responded_at = $7
		WHERE id = $1 AND status = $2`

	result, err := t.tx.Exec(ctx, query,
		params.OfferID, params.ExpectedStatus, params.NewStatus,
		params.CounterCents, params.Message, params.ExpiresAt, params.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.Conflict(concurrentUpdateMessage)
	}

	return nil
}

// InsertMessage appends a message row; offer snapshots are stored as JSONB.
func (t *offerTx) InsertMessage(ctx context.Context, params InsertMessageParams) (uuid.UUID, error) {
	var offerData []byte
	if params.Snapshot != nil {
		encoded, err := json.Marshal(params.Snapshot)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("encode offer snapshot: %w", err)
		}
		offerData = encoded
	}

	query := `
		INSERT INTO messages (conversation_id, sender_id, message_type, body, offer_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var messageID uuid.UUID
	err := t.tx.QueryRow(ctx, query,
		params.ConversationID, params.SenderID, params.MessageType,
		params.Body, offerData, params.CreatedAt,
	).Scan(&messageID)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("insert message: %w", err)
	}

	return messageID, nil
}

// BumpUnread records the new last message and increments the recipient's
// unread counter.
func (t *offerTx) BumpUnread(ctx context.Context, conversationID uuid.UUID, recipientIsBuyer bool, messageID uuid.UUID, at time.Time) error {
	counter := "seller_unread_count"
	if recipientIsBuyer {
		counter = "buyer_unread_count"
	}

	query := `
		UPDATE conversations SET
			last_message_id = $2,
			last_message_at = $3,
			` + counter + ` = ` + counter + ` + 1
		WHERE id = $1`

	result, err := t.tx.Exec(ctx, query, conversationID, messageID, at)
	if err != nil {
		return fmt.Errorf("bump conversation unread: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("conversation not found")
	}

	return nil
}

// MarkProductSold flags the product unavailable with a sold timestamp.
func (t *offerTx) MarkProductSold(ctx context.Context, productID uuid.UUID, at time.Time) error {
	query := `UPDATE products SET is_available = false, sold_at = $2 WHERE id = $1`

	result, err := t.tx.Exec(ctx, query, productID, at)
	if err != nil {
		return fmt.Errorf("mark product sold: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(productNotFoundMessage)
	}

	return nil
}

// InsertTransaction creates the pending settlement record. The unique
// constraint on offer_id makes a double accept impossible to persist.
func (t *offerTx) InsertTransaction(ctx context.Context, params InsertTransactionParams) (uuid.UUID, error) {
	query := `
		INSERT INTO transactions (offer_id, product_id, buyer_id, seller_id,
			amount_cents, platform_fee_cents, seller_payout_cents, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)
		RETURNING id`

	var transactionID uuid.UUID
	err := t.tx.QueryRow(ctx, query,
		params.OfferID, params.ProductID, params.BuyerID, params.SellerID,
		params.AmountCents, params.PlatformFeeCents, params.SellerPayoutCents,
		params.Currency, params.CreatedAt,
	).Scan(&transactionID)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("insert transaction: %w", err)
	}

	return transactionID, nil
}

func findOrCreateConversation(ctx context.Context, tx pgx.Tx, productID, buyerID, sellerID uuid.UUID) (uuid.UUID, error) {
	insert := `
		INSERT INTO conversations (product_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, buyer_id, seller_id) DO NOTHING
		RETURNING id`

	var conversationID uuid.UUID
	err := tx.QueryRow(ctx, insert, productID, buyerID, sellerID).Scan(&conversationID)
	if err == nil {
		return conversationID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, fmt.Errorf("create conversation: %w", err)
	}

	// Conflict hit: the triple already has a conversation.
	query := `SELECT id FROM conversations WHERE product_id = $1 AND buyer_id = $2 AND seller_id = $3`
	if err := tx.QueryRow(ctx, query, productID, buyerID, sellerID).Scan(&conversationID); err != nil {
		return uuid.UUID{}, fmt.Errorf("find conversation: %w", err)
	}

	return conversationID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(
		&o.ID, &o.ProductID, &o.BuyerID, &o.SellerID, &o.ConversationID,
		&o.OfferedCents, &o.OriginalCents, &o.CounterCents, &o.Currency,
		&o.Status, &o.Message, &o.CreatedAt, &o.ExpiresAt, &o.RespondedAt,
	)
	if err != nil {
		return domain.Offer{}, err
	}
	return o, nil
}

func scanOffers(rows pgx.Rows) ([]domain.Offer, error) {
	var results []domain.Offer

	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		results = append(results, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	return results, nil
}
