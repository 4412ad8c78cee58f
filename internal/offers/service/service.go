// Package service implements the offer negotiation engine: create,
// accept, decline and counter transitions plus the expiry sweep.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/offers/domain"
	"marketplace_backend/internal/offers/repository"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
)

// ExpiryScheduler enqueues a delayed expiry check for a single offer.
// Scheduling is best-effort: the periodic sweep catches anything the
// queue misses.
type ExpiryScheduler interface {
	ScheduleOfferExpiry(ctx context.Context, offerID uuid.UUID, at time.Time) error
}

// Service is the negotiation engine. Every mutation goes through the
// repository's locked load-then-save path; events fire after commit.
type Service struct {
	repo      repository.Repository
	bus       events.Bus
	clock     clock.Clock
	log       *logger.Logger
	scheduler ExpiryScheduler

	ttl            time.Duration
	sweepBatchSize int
}

// New creates the negotiation engine.
func New(repo repository.Repository, bus events.Bus, clk clock.Clock, log *logger.Logger, cfg config.OffersConfig) *Service {
	return &Service{
		repo:           repo,
		bus:            bus,
		clock:          clk,
		log:            log,
		ttl:            cfg.GetOfferTTL(),
		sweepBatchSize: cfg.GetSweepBatchSize(),
	}
}

// WithScheduler attaches the delayed-expiry scheduler. Without one the
// periodic sweep is the only expiry driver, which is also correct.
func (s *Service) WithScheduler(scheduler ExpiryScheduler) *Service {
	s.scheduler = scheduler
	return s
}

// CreateOfferInput carries a buyer's new proposal.
type CreateOfferInput struct {
	BuyerID      uuid.UUID
	ProductID    uuid.UUID
	OfferedCents int64
	Message      *string
}

// Create validates and persists a buyer's offer on a product, opening
// (or reusing) the conversation between the parties.
func (s *Service) Create(ctx context.Context, input CreateOfferInput) (domain.Offer, error) {
	product, err := s.repo.GetProduct(ctx, input.ProductID)
	if err != nil {
		return domain.Offer{}, err
	}

	if product.SellerID == input.BuyerID {
		return domain.Offer{}, apperr.Validation("you cannot make an offer on your own product")
	}
	if !product.IsAvailable {
		return domain.Offer{}, apperr.Conflict("product is no longer available")
	}
	if input.OfferedCents <= 0 || input.OfferedCents >= product.PriceCents {
		return domain.Offer{}, apperr.Validation("offered price must be positive and below the asking price")
	}

	now := s.clock.Now()
	offer, err := s.repo.CreateOffer(ctx, repository.CreateOfferParams{
		ProductID:     product.ID,
		BuyerID:       input.BuyerID,
		SellerID:      product.SellerID,
		OfferedCents:  input.OfferedCents,
		OriginalCents: product.PriceCents,
		Currency:      product.Currency,
		Message:       input.Message,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	})
	if err != nil {
		return domain.Offer{}, err
	}

	s.scheduleExpiry(ctx, offer.ID, offer.ExpiresAt)
	s.log.OfferTransition(offer.ID.String(), "", string(domain.StatusPending), input.BuyerID.String())
	s.bus.Publish(ctx, events.OfferCreated{
		BaseEvent:      events.NewBaseEvent(),
		OfferID:        offer.ID,
		ProductID:      offer.ProductID,
		BuyerID:        offer.BuyerID,
		SellerID:       offer.SellerID,
		ConversationID: offer.ConversationID,
		OfferedCents:   offer.OfferedCents,
		Currency:       offer.Currency,
	})

	return offer, nil
}

// AcceptResult reports an accepted offer with its settlement record.
// Payment capture happens downstream, so PaymentRequired is always true.
type AcceptResult struct {
	Offer           domain.Offer
	TransactionID   uuid.UUID
	PaymentRequired bool
}

// Accept resolves the negotiation at the current proposal: the seller
// accepts a pending offer at the buyer's price, or the buyer accepts a
// countered offer at the seller's counter price. An accept after the
// response window lapsed expires the offer instead and reports it gone.
func (s *Service) Accept(ctx context.Context, callerID, offerID uuid.UUID) (AcceptResult, error) {
	var (
		result      AcceptResult
		lapsedOffer *domain.Offer
		previous    domain.OfferStatus
		amount      int64
	)

	err := s.repo.WithOfferForUpdate(ctx, offerID, func(tx repository.OfferTx, offer domain.Offer) error {
		previous = offer.Status
		switch offer.Status {
		case domain.StatusPending:
			if offer.SellerID != callerID {
				return apperr.Forbidden("only the seller can accept this offer")
			}
		case domain.StatusCountered:
			if offer.BuyerID != callerID {
				return apperr.Forbidden("only the buyer can accept the counter offer")
			}
		default:
			return apperr.Conflict(fmt.Sprintf("offer is already %s", offer.Status))
		}

		now := s.clock.Now()
		if offer.ExpiredBy(now) {
			// Commit the lapse so the row reflects reality; the caller
			// still gets a failure.
			if err := s.expireInTx(ctx, tx, &offer, now); err != nil {
				return err
			}
			lapsedOffer = &offer
			return nil
		}

		product, err := s.repo.GetProduct(ctx, offer.ProductID)
		if err != nil {
			return err
		}
		// A second pending offer on the same product must not produce a
		// second sale once the first accept marked it sold.
		if !product.IsAvailable {
			return apperr.Conflict("product is no longer available")
		}

		amount = offer.AcceptedAmount()
		fee := domain.ComputeFee(amount, product.FeedType)

		if err := tx.UpdateStatus(ctx, repository.UpdateStatusParams{
			OfferID:        offer.ID,
			ExpectedStatus: previous,
			NewStatus:      domain.StatusAccepted,
			RespondedAt:    now,
		}); err != nil {
			return err
		}
		offer.Status = domain.StatusAccepted
		offer.RespondedAt = &now

		if err := tx.MarkProductSold(ctx, offer.ProductID, now); err != nil {
			return err
		}

		transactionID, err := tx.InsertTransaction(ctx, repository.InsertTransactionParams{
			OfferID:           offer.ID,
			ProductID:         offer.ProductID,
			BuyerID:           offer.BuyerID,
			SellerID:          offer.SellerID,
			AmountCents:       amount,
			PlatformFeeCents:  fee.PlatformFeeCents,
			SellerPayoutCents: fee.SellerPayoutCents,
			Currency:          offer.Currency,
			CreatedAt:         now,
		})
		if err != nil {
			return err
		}

		if err := s.appendSystemMessage(ctx, tx, offer, callerID, "Offer accepted", now); err != nil {
			return err
		}

		result = AcceptResult{Offer: offer, TransactionID: transactionID, PaymentRequired: true}
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}

	if lapsedOffer != nil {
		s.afterExpiry(ctx, *lapsedOffer, "accept")
		return AcceptResult{}, apperr.Gone("the offer has expired")
	}

	s.log.OfferTransition(offerID.String(), string(previous), string(domain.StatusAccepted), callerID.String())
	s.bus.Publish(ctx, events.OfferAccepted{
		BaseEvent:     events.NewBaseEvent(),
		OfferID:       result.Offer.ID,
		ProductID:     result.Offer.ProductID,
		BuyerID:       result.Offer.BuyerID,
		SellerID:      result.Offer.SellerID,
		TransactionID: result.TransactionID,
		AmountCents:   amount,
		Currency:      result.Offer.Currency,
	})

	return result, nil
}

// Decline rejects the current proposal. The seller declines a pending
// offer; on a countered offer either party may end the negotiation
// (buyer rejecting the counter, or seller withdrawing it).
func (s *Service) Decline(ctx context.Context, callerID, offerID uuid.UUID) (domain.Offer, error) {
	var declined domain.Offer

	err := s.repo.WithOfferForUpdate(ctx, offerID, func(tx repository.OfferTx, offer domain.Offer) error {
		switch offer.Status {
		case domain.StatusPending:
			if offer.SellerID != callerID {
				return apperr.Forbidden("only the seller can decline this offer")
			}
		case domain.StatusCountered:
			if offer.BuyerID != callerID && offer.SellerID != callerID {
				return apperr.Forbidden("only the buyer or seller can decline this offer")
			}
		default:
			return apperr.Conflict(fmt.Sprintf("offer is already %s", offer.Status))
		}

		now := s.clock.Now()
		if err := tx.UpdateStatus(ctx, repository.UpdateStatusParams{
			OfferID:        offer.ID,
			ExpectedStatus: offer.Status,
			NewStatus:      domain.StatusDeclined,
			RespondedAt:    now,
		}); err != nil {
			return err
		}
		offer.Status = domain.StatusDeclined
		offer.RespondedAt = &now

		if err := s.appendSystemMessage(ctx, tx, offer, callerID, "Offer declined", now); err != nil {
			return err
		}

		declined = offer
		return nil
	})
	if err != nil {
		return domain.Offer{}, err
	}

	s.log.OfferTransition(offerID.String(), "", string(domain.StatusDeclined), callerID.String())
	s.bus.Publish(ctx, events.OfferDeclined{
		BaseEvent: events.NewBaseEvent(),
		OfferID:   declined.ID,
		ProductID: declined.ProductID,
		BuyerID:   declined.BuyerID,
		SellerID:  declined.SellerID,
	})

	return declined, nil
}

// CounterOfferInput carries the seller's alternate price.
type CounterOfferInput struct {
	SellerID     uuid.UUID
	OfferID      uuid.UUID
	CounterCents int64
	Message      *string
}

// Counter replaces the buyer's proposal with the seller's price and
// restarts the response window.
func (s *Service) Counter(ctx context.Context, input CounterOfferInput) (domain.Offer, error) {
	var countered domain.Offer

	err := s.repo.WithOfferForUpdate(ctx, input.OfferID, func(tx repository.OfferTx, offer domain.Offer) error {
		if offer.SellerID != input.SellerID {
			return apperr.Forbidden("only the seller can counter this offer")
		}
		if offer.Status != domain.StatusPending {
			return apperr.Conflict(fmt.Sprintf("only a pending offer can be countered, offer is %s", offer.Status))
		}
		if input.CounterCents <= 0 || input.CounterCents >= offer.OriginalCents {
			return apperr.Validation("counter price must be positive and below the original asking price")
		}

		now := s.clock.Now()
		expiresAt := now.Add(s.ttl)
		if err := tx.UpdateStatus(ctx, repository.UpdateStatusParams{
			OfferID:        offer.ID,
			ExpectedStatus: domain.StatusPending,
			NewStatus:      domain.StatusCountered,
			CounterCents:   &input.CounterCents,
			Message:        input.Message,
			ExpiresAt:      &expiresAt,
			RespondedAt:    now,
		}); err != nil {
			return err
		}
		offer.Status = domain.StatusCountered
		offer.CounterCents = &input.CounterCents
		if input.Message != nil {
			offer.Message = input.Message
		}
		offer.ExpiresAt = expiresAt
		offer.RespondedAt = &now

		body := ""
		if input.Message != nil {
			body = *input.Message
		}
		snapshot := domain.NewSnapshot(offer)
		messageID, err := tx.InsertMessage(ctx, repository.InsertMessageParams{
			ConversationID: offer.ConversationID,
			SenderID:       offer.SellerID,
			MessageType:    "offer",
			Body:           body,
			Snapshot:       &snapshot,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		if err := tx.BumpUnread(ctx, offer.ConversationID, true, messageID, now); err != nil {
			return err
		}

		countered = offer
		return nil
	})
	if err != nil {
		return domain.Offer{}, err
	}

	s.scheduleExpiry(ctx, countered.ID, countered.ExpiresAt)
	s.log.OfferTransition(countered.ID.String(), string(domain.StatusPending), string(domain.StatusCountered), input.SellerID.String())
	s.bus.Publish(ctx, events.OfferCountered{
		BaseEvent:    events.NewBaseEvent(),
		OfferID:      countered.ID,
		ProductID:    countered.ProductID,
		BuyerID:      countered.BuyerID,
		SellerID:     countered.SellerID,
		CounterCents: input.CounterCents,
		Currency:     countered.Currency,
	})

	return countered, nil
}

// List retrieves the caller's offers with optional status/party filters.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Offer, int, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, 0, apperr.Validation("unknown offer status filter")
	}
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.repo.List(ctx, params)
}

// ProductOffers returns the full offer history of a product. Seller only.
func (s *Service) ProductOffers(ctx context.Context, callerID, productID uuid.UUID) ([]domain.Offer, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != callerID {
		return nil, apperr.Forbidden("only the seller can view a product's offers")
	}
	return s.repo.ListByProduct(ctx, productID)
}

// AdminList returns all offers, open negotiations first.
func (s *Service) AdminList(ctx context.Context, limit, offset int) ([]domain.Offer, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAdmin(ctx, limit, offset)
}

// ExpireOne force-expires a single overdue offer. It is idempotent:
// already-resolved offers and offers whose window was extended by a
// counter are skipped without error.
func (s *Service) ExpireOne(ctx context.Context, offerID uuid.UUID) (bool, error) {
	var lapsedOffer *domain.Offer

	err := s.repo.WithOfferForUpdate(ctx, offerID, func(tx repository.OfferTx, offer domain.Offer) error {
		if offer.Status.Terminal() {
			return nil
		}
		now := s.clock.Now()
		if !offer.ExpiredBy(now) {
			return nil
		}
		if err := s.expireInTx(ctx, tx, &offer, now); err != nil {
			return err
		}
		lapsedOffer = &offer
		return nil
	})
	if err != nil {
		return false, err
	}

	if lapsedOffer == nil {
		return false, nil
	}

	s.afterExpiry(ctx, *lapsedOffer, "sweeper")
	return true, nil
}

// SweepExpired expires every overdue offer, one transaction per offer so
// a mid-run failure leaves consistent partial progress. It returns the
// number expired and the number of failures.
func (s *Service) SweepExpired(ctx context.Context) (int, int, error) {
	started := s.clock.Now()

	ids, err := s.repo.ListExpirable(ctx, started, s.sweepBatchSize)
	if err != nil {
		return 0, 0, err
	}

	var expired, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		done, err := s.ExpireOne(ctx, id)
		if err != nil {
			failed++
			s.log.Error("offer expiry failed", "offer_id", id.String(), "error", err)
			continue
		}
		if done {
			expired++
		}
	}

	s.log.SweepRun(expired, failed, float64(s.clock.Now().Sub(started).Milliseconds()))
	return expired, failed, nil
}

// expireInTx performs the EXPIRED transition for an offer already held
// under the row lock and mutates the in-memory copy to match.
func (s *Service) expireInTx(ctx context.Context, tx repository.OfferTx, offer *domain.Offer, now time.Time) error {
	if err := tx.UpdateStatus(ctx, repository.UpdateStatusParams{
		OfferID:        offer.ID,
		ExpectedStatus: offer.Status,
		NewStatus:      domain.StatusExpired,
		RespondedAt:    now,
	}); err != nil {
		return err
	}
	offer.Status = domain.StatusExpired
	offer.RespondedAt = &now
	return nil
}

func (s *Service) afterExpiry(ctx context.Context, offer domain.Offer, actor string) {
	s.log.OfferTransition(offer.ID.String(), "", string(domain.StatusExpired), actor)
	s.bus.Publish(ctx, events.OfferExpired{
		BaseEvent: events.NewBaseEvent(),
		OfferID:   offer.ID,
		ProductID: offer.ProductID,
		BuyerID:   offer.BuyerID,
		SellerID:  offer.SellerID,
	})
}

// appendSystemMessage writes the transition note into the conversation
// and bumps the unread counter of the party who did not act.
func (s *Service) appendSystemMessage(ctx context.Context, tx repository.OfferTx, offer domain.Offer, actorID uuid.UUID, body string, now time.Time) error {
	snapshot := domain.NewSnapshot(offer)
	messageID, err := tx.InsertMessage(ctx, repository.InsertMessageParams{
		ConversationID: offer.ConversationID,
		SenderID:       actorID,
		MessageType:    "system",
		Body:           body,
		Snapshot:       &snapshot,
		CreatedAt:      now,
	})
	if err != nil {
		return err
	}
	return tx.BumpUnread(ctx, offer.ConversationID, actorID != offer.BuyerID, messageID, now)
}

func (s *Service) scheduleExpiry(ctx context.Context, offerID uuid.UUID, at time.Time) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleOfferExpiry(ctx, offerID, at); err != nil {
		s.log.Error("failed to schedule offer expiry", "offer_id", offerID.String(), "error", err)
	}
}
