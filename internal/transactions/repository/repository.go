// Package repository provides read access to settlement records. Rows
// are created by the negotiation engine on accept; payment capture is
// owned by an external settlement system.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/platform/apperr"
)

// Transaction is the financial settlement record of an accepted offer.
type Transaction struct {
	ID                uuid.UUID
	OfferID           uuid.UUID
	ProductID         uuid.UUID
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	AmountCents       int64
	PlatformFeeCents  int64
	SellerPayoutCents int64
	Currency          string
	Status            string
	CreatedAt         time.Time
}

// Repository is the read-side access point to transaction rows.
type Repository interface {
	GetByID(ctx context.Context, transactionID uuid.UUID) (Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]Transaction, int, error)
}

const transactionColumns = `id, offer_id, product_id, buyer_id, seller_id,
	amount_cents, platform_fee_cents, seller_payout_cents, currency, status, created_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new transactions repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) GetByID(ctx context.Context, transactionID uuid.UUID) (Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transaction, err := scanTransaction(r.pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, apperr.NotFound("transaction not found")
		}
		return Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return transaction, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE buyer_id = $1 OR seller_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collect(rows, total)
}

func (r *Repo) ListAll(ctx context.Context, limit, offset int) ([]Transaction, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collect(rows, total)
}

func collect(rows pgx.Rows, total int) ([]Transaction, int, error) {
	var results []Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		results = append(results, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return results, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.OfferID, &t.ProductID, &t.BuyerID, &t.SellerID,
		&t.AmountCents, &t.PlatformFeeCents, &t.SellerPayoutCents,
		&t.Currency, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}
