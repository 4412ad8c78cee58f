package repository

import (
	"context"
	"time"

	"marketplace_backend/internal/offers/domain"

	"github.com/google/uuid"
)

// ProductInfo is the product snapshot the negotiation engine needs to
// validate an offer. It is read-only here; the products module owns writes.
type ProductInfo struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	PriceCents  int64
	Currency    string
	FeedType    string
	IsAvailable bool
}

// CreateOfferParams carries everything needed to persist a new offer with
// its conversation side effects.
type CreateOfferParams struct {
	ProductID     uuid.UUID
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	OfferedCents  int64
	OriginalCents int64
	Currency      string
	Message       *string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// UpdateStatusParams transitions a locked offer. ExpectedStatus guards
// against lost updates: zero rows affected surfaces as Conflict.
type UpdateStatusParams struct {
	OfferID        uuid.UUID
	ExpectedStatus domain.OfferStatus
	NewStatus      domain.OfferStatus
	CounterCents   *int64
	Message        *string
	ExpiresAt      *time.Time
	RespondedAt    time.Time
}

// InsertMessageParams appends a message to a conversation.
type InsertMessageParams struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	MessageType    string // "offer", "system" or "text"
	Body           string
	Snapshot       *domain.Snapshot
	CreatedAt      time.Time
}

// InsertTransactionParams creates the settlement record for an accepted offer.
type InsertTransactionParams struct {
	OfferID           uuid.UUID
	ProductID         uuid.UUID
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	AmountCents       int64
	PlatformFeeCents  int64
	SellerPayoutCents int64
	Currency          string
	CreatedAt         time.Time
}

// ListParams filters and paginates a user's offers.
type ListParams struct {
	UserID   uuid.UUID
	Status   *domain.OfferStatus
	AsBuyer  bool
	AsSeller bool
	Limit    int
	Offset   int
}

// OfferTx is the set of writes available while holding the offer row lock.
// Everything executed through it commits or rolls back as one unit.
type OfferTx interface {
	UpdateStatus(ctx context.Context, params UpdateStatusParams) error
	InsertMessage(ctx context.Context, params InsertMessageParams) (uuid.UUID, error)
	BumpUnread(ctx context.Context, conversationID uuid.UUID, recipientIsBuyer bool, messageID uuid.UUID, at time.Time) error
	MarkProductSold(ctx context.Context, productID uuid.UUID, at time.Time) error
	InsertTransaction(ctx context.Context, params InsertTransactionParams) (uuid.UUID, error)
}

// Repository is the sole access point to offer rows.
type Repository interface {
	// GetProduct loads the product snapshot used to validate a new offer.
	GetProduct(ctx context.Context, productID uuid.UUID) (ProductInfo, error)

	// CreateOffer inserts the offer, finds or creates the (buyer, seller,
	// product) conversation, writes the offer message and bumps the
	// seller's unread counter in one transaction.
	CreateOffer(ctx context.Context, params CreateOfferParams) (domain.Offer, error)

	// GetByID loads an offer without locking (read paths only).
	GetByID(ctx context.Context, offerID uuid.UUID) (domain.Offer, error)

	// WithOfferForUpdate loads the offer under a row lock and runs fn
	// inside the same transaction. Two concurrent mutations of the same
	// offer serialize here; the loser observes the winner's committed
	// state. fn returning an error rolls everything back.
	WithOfferForUpdate(ctx context.Context, offerID uuid.UUID, fn func(tx OfferTx, offer domain.Offer) error) error

	List(ctx context.Context, params ListParams) ([]domain.Offer, int, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Offer, error)
	ListAdmin(ctx context.Context, limit, offset int) ([]domain.Offer, int, error)

	// ListExpirable returns ids of non-terminal offers whose window lapsed
	// before now. The sweeper re-checks each under WithOfferForUpdate.
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
