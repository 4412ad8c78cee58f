package transport

import (
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/offers/domain"
)

// Request DTOs

type CreateOfferRequest struct {
	ProductID    uuid.UUID `json:"productId" validate:"required"`
	OfferedCents int64     `json:"offeredCents" validate:"required,gt=0"`
	Message      *string   `json:"message,omitempty" validate:"omitempty,max=500"`
}

type CounterOfferRequest struct {
	CounterCents int64   `json:"counterCents" validate:"required,gt=0"`
	Message      *string `json:"message,omitempty" validate:"omitempty,max=500"`
}

// Response DTOs

type OfferResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"productId"`
	BuyerID        uuid.UUID  `json:"buyerId"`
	SellerID       uuid.UUID  `json:"sellerId"`
	ConversationID uuid.UUID  `json:"conversationId"`
	OfferedCents   int64      `json:"offeredCents"`
	OriginalCents  int64      `json:"originalCents"`
	CounterCents   *int64     `json:"counterCents,omitempty"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	Message        *string    `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
}

type AcceptOfferResponse struct {
	Offer           OfferResponse `json:"offer"`
	TransactionID   uuid.UUID     `json:"transactionId"`
	PaymentRequired bool          `json:"paymentRequired"`
}

type OfferListResponse struct {
	Items   []OfferResponse `json:"items"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
}

// FromDomain maps a domain offer to its API representation.
func FromDomain(o domain.Offer) OfferResponse {
	return OfferResponse{
		ID:             o.ID,
		ProductID:      o.ProductID,
		BuyerID:        o.BuyerID,
		SellerID:       o.SellerID,
		ConversationID: o.ConversationID,
		OfferedCents:   o.OfferedCents,
		OriginalCents:  o.OriginalCents,
		CounterCents:   o.CounterCents,
		Currency:       o.Currency,
		Status:         string(o.Status),
		Message:        o.Message,
		CreatedAt:      o.CreatedAt,
		ExpiresAt:      o.ExpiresAt,
		RespondedAt:    o.RespondedAt,
	}
}

// FromDomainList maps a slice of domain offers.
func FromDomainList(offers []domain.Offer) []OfferResponse {
	results := make([]OfferResponse, 0, len(offers))
	for _, offer := range offers {
		results = append(results, FromDomain(offer))
	}
	return results
}
