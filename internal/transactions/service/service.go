// Package service implements read-only settlement views.
package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace_backend/internal/transactions/repository"
	"marketplace_backend/platform/apperr"
)

// Service exposes settlement records to their parties and to admins.
type Service struct {
	repo repository.Repository
}

// New creates the transactions service.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a transaction visible to the caller (buyer or seller).
func (s *Service) Get(ctx context.Context, callerID, transactionID uuid.UUID) (repository.Transaction, error) {
	transaction, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return repository.Transaction{}, err
	}
	if transaction.BuyerID != callerID && transaction.SellerID != callerID {
		return repository.Transaction{}, apperr.Forbidden("you are not a party to this transaction")
	}
	return transaction, nil
}

// List returns the caller's transactions, most recent first.
func (s *Service) List(ctx context.Context, callerID uuid.UUID, limit, offset int) ([]repository.Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForUser(ctx, callerID, limit, offset)
}

// AdminList returns all transactions.
func (s *Service) AdminList(ctx context.Context, limit, offset int) ([]repository.Transaction, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAll(ctx, limit, offset)
}
