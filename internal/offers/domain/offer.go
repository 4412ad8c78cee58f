// Package domain holds the offer negotiation model: the offer entity,
// its status state machine, and the platform fee schedule. No I/O.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus is the closed set of negotiation states.
type OfferStatus string

const (
	// StatusPending is the initial state set at creation.
	StatusPending OfferStatus = "pending"
	// StatusAccepted is terminal; a transaction row exists.
	StatusAccepted OfferStatus = "accepted"
	// StatusDeclined is terminal.
	StatusDeclined OfferStatus = "declined"
	// StatusExpired is terminal; set by the sweeper or by an action
	// that arrives after the response window lapsed.
	StatusExpired OfferStatus = "expired"
	// StatusCountered means the seller proposed an alternate price and
	// the response window restarted.
	StatusCountered OfferStatus = "countered"
)

// transitions is the explicit legality table. Anything absent is illegal.
var transitions = map[OfferStatus][]OfferStatus{
	StatusPending:   {StatusAccepted, StatusDeclined, StatusCountered, StatusExpired},
	StatusCountered: {StatusAccepted, StatusDeclined, StatusExpired},
}

// Valid reports whether s is a known status.
func (s OfferStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusExpired, StatusCountered:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s OfferStatus) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether the edge s -> to is legal.
func (s OfferStatus) CanTransition(to OfferStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Offer is the negotiation unit. Prices are integer cents; original_cents
// is a snapshot of the product price at offer time and never changes.
type Offer struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	BuyerID        uuid.UUID
	SellerID       uuid.UUID
	ConversationID uuid.UUID
	OfferedCents   int64
	OriginalCents  int64
	CounterCents   *int64
	Currency       string
	Status         OfferStatus
	Message        *string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RespondedAt    *time.Time
}

// ExpiredBy reports whether the response window has lapsed at now.
func (o Offer) ExpiredBy(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// AcceptedAmount returns the amount a settlement is created over: the
// counter price when the seller countered, the buyer's offer otherwise.
func (o Offer) AcceptedAmount() int64 {
	if o.Status == StatusCountered && o.CounterCents != nil {
		return *o.CounterCents
	}
	return o.OfferedCents
}

// Snapshot is the structured payload attached to offer-typed conversation
// messages, so clients can render the proposal inline.
type Snapshot struct {
	OfferID       uuid.UUID   `json:"offerId"`
	Status        OfferStatus `json:"status"`
	OfferedCents  int64       `json:"offeredCents"`
	CounterCents  *int64      `json:"counterCents,omitempty"`
	OriginalCents int64       `json:"originalCents"`
	Currency      string      `json:"currency"`
}

// NewSnapshot captures the offer's current proposal for a message payload.
func NewSnapshot(o Offer) Snapshot {
	return Snapshot{
		OfferID:       o.ID,
		Status:        o.Status,
		OfferedCents:  o.OfferedCents,
		CounterCents:  o.CounterCents,
		OriginalCents: o.OriginalCents,
		Currency:      o.Currency,
	}
}
