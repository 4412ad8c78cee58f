// Package service implements conversation reads and plain messaging.
// Offer-typed messages are written by the negotiation engine; this
// service only appends text messages and manages read state.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"marketplace_backend/internal/conversations/repository"
	"marketplace_backend/platform/apperr"
)

// Service manages conversation access for participants.
type Service struct {
	repo repository.Repository
}

// New creates the conversations service.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// List returns the caller's conversations, most recent activity first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]repository.Conversation, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// Get returns a conversation the caller participates in.
func (s *Service) Get(ctx context.Context, callerID, conversationID uuid.UUID) (repository.Conversation, error) {
	conversation, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return repository.Conversation{}, err
	}
	if conversation.BuyerID != callerID && conversation.SellerID != callerID {
		return repository.Conversation{}, apperr.Forbidden("you are not part of this conversation")
	}
	return conversation, nil
}

// Messages returns a page of the conversation's message log, newest first.
func (s *Service) Messages(ctx context.Context, callerID, conversationID uuid.UUID, limit, offset int) ([]repository.Message, error) {
	if _, err := s.Get(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// Send appends a text message from the caller and bumps the other
// party's unread counter.
func (s *Service) Send(ctx context.Context, callerID, conversationID uuid.UUID, body string) (repository.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return repository.Message{}, apperr.Validation("message body is required")
	}

	conversation, err := s.Get(ctx, callerID, conversationID)
	if err != nil {
		return repository.Message{}, err
	}

	return s.repo.AppendMessage(ctx, repository.AppendMessageParams{
		ConversationID:   conversationID,
		SenderID:         callerID,
		Body:             body,
		RecipientIsBuyer: callerID == conversation.SellerID,
	})
}

// MarkRead clears the caller's unread counter.
func (s *Service) MarkRead(ctx context.Context, callerID, conversationID uuid.UUID) error {
	conversation, err := s.Get(ctx, callerID, conversationID)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, conversationID, callerID == conversation.BuyerID)
}
