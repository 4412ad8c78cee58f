package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/conversations/repository"
)

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

type ConversationResponse struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"productId"`
	BuyerID           uuid.UUID  `json:"buyerId"`
	SellerID          uuid.UUID  `json:"sellerId"`
	LastMessageID     *uuid.UUID `json:"lastMessageId,omitempty"`
	LastMessageAt     *time.Time `json:"lastMessageAt,omitempty"`
	BuyerUnreadCount  int        `json:"buyerUnreadCount"`
	SellerUnreadCount int        `json:"sellerUnreadCount"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type MessageResponse struct {
	ID             uuid.UUID       `json:"id"`
	ConversationID uuid.UUID       `json:"conversationId"`
	SenderID       uuid.UUID       `json:"senderId"`
	MessageType    string          `json:"messageType"`
	Body           string          `json:"body"`
	OfferData      json.RawMessage `json:"offerData,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type ConversationListResponse struct {
	Items   []ConversationResponse `json:"items"`
	Total   int                    `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"perPage"`
}

func FromConversation(c repository.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                c.ID,
		ProductID:         c.ProductID,
		BuyerID:           c.BuyerID,
		SellerID:          c.SellerID,
		LastMessageID:     c.LastMessageID,
		LastMessageAt:     c.LastMessageAt,
		BuyerUnreadCount:  c.BuyerUnreadCount,
		SellerUnreadCount: c.SellerUnreadCount,
		CreatedAt:         c.CreatedAt,
	}
}

func FromMessage(m repository.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		MessageType:    m.MessageType,
		Body:           m.Body,
		OfferData:      m.OfferData,
		CreatedAt:      m.CreatedAt,
	}
}

func FromMessages(messages []repository.Message) []MessageResponse {
	results := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		results = append(results, FromMessage(m))
	}
	return results
}
