// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"marketplace_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Offer Domain Events
// =============================================================================

// OfferCreated is published after a buyer's offer is committed.
type OfferCreated struct {
	BaseEvent
	OfferID        uuid.UUID `json:"offerId"`
	ProductID      uuid.UUID `json:"productId"`
	BuyerID        uuid.UUID `json:"buyerId"`
	SellerID       uuid.UUID `json:"sellerId"`
	ConversationID uuid.UUID `json:"conversationId"`
	OfferedCents   int64     `json:"offeredCents"`
	Currency       string    `json:"currency"`
}

func (e OfferCreated) EventName() string { return "offers.offer.created" }

// OfferAccepted is published after a seller accepts an offer.
// The transaction row exists by the time this event fires.
type OfferAccepted struct {
	BaseEvent
	OfferID       uuid.UUID `json:"offerId"`
	ProductID     uuid.UUID `json:"productId"`
	BuyerID       uuid.UUID `json:"buyerId"`
	SellerID      uuid.UUID `json:"sellerId"`
	TransactionID uuid.UUID `json:"transactionId"`
	AmountCents   int64     `json:"amountCents"`
	Currency      string    `json:"currency"`
}

func (e OfferAccepted) EventName() string { return "offers.offer.accepted" }

// OfferDeclined is published after a seller declines an offer.
type OfferDeclined struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offerId"`
	ProductID uuid.UUID `json:"productId"`
	BuyerID   uuid.UUID `json:"buyerId"`
	SellerID  uuid.UUID `json:"sellerId"`
}

func (e OfferDeclined) EventName() string { return "offers.offer.declined" }

// OfferCountered is published after a seller issues a counter price.
type OfferCountered struct {
	BaseEvent
	OfferID      uuid.UUID `json:"offerId"`
	ProductID    uuid.UUID `json:"productId"`
	BuyerID      uuid.UUID `json:"buyerId"`
	SellerID     uuid.UUID `json:"sellerId"`
	CounterCents int64     `json:"counterCents"`
	Currency     string    `json:"currency"`
}

func (e OfferCountered) EventName() string { return "offers.offer.countered" }

// OfferExpired is published when the sweeper (or an expiry task)
// force-transitions an overdue offer.
type OfferExpired struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offerId"`
	ProductID uuid.UUID `json:"productId"`
	BuyerID   uuid.UUID `json:"buyerId"`
	SellerID  uuid.UUID `json:"sellerId"`
}

func (e OfferExpired) EventName() string { return "offers.offer.expired" }
