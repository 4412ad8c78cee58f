package transport

import (
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/transactions/repository"
)

type TransactionResponse struct {
	ID                uuid.UUID `json:"id"`
	OfferID           uuid.UUID `json:"offerId"`
	ProductID         uuid.UUID `json:"productId"`
	BuyerID           uuid.UUID `json:"buyerId"`
	SellerID          uuid.UUID `json:"sellerId"`
	AmountCents       int64     `json:"amountCents"`
	PlatformFeeCents  int64     `json:"platformFeeCents"`
	SellerPayoutCents int64     `json:"sellerPayoutCents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

type TransactionListResponse struct {
	Items   []TransactionResponse `json:"items"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"perPage"`
}

func FromRepo(t repository.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID,
		OfferID:           t.OfferID,
		ProductID:         t.ProductID,
		BuyerID:           t.BuyerID,
		SellerID:          t.SellerID,
		AmountCents:       t.AmountCents,
		PlatformFeeCents:  t.PlatformFeeCents,
		SellerPayoutCents: t.SellerPayoutCents,
		Currency:          t.Currency,
		Status:            t.Status,
		CreatedAt:         t.CreatedAt,
	}
}

func FromRepoList(transactions []repository.Transaction) []TransactionResponse {
	results := make([]TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		results = append(results, FromRepo(t))
	}
	return results
}
