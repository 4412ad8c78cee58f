package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
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

// ----------------------------------------------------------------------------
// In-memory fakes
// ----------------------------------------------------------------------------

type unreadBump struct {
	conversationID   uuid.UUID
	recipientIsBuyer bool
}

type fakeRepo struct {
	products      map[uuid.UUID]repository.ProductInfo
	offers        map[uuid.UUID]domain.Offer
	conversations map[[3]uuid.UUID]uuid.UUID
	messages      []repository.InsertMessageParams
	transactions  []repository.InsertTransactionParams
	bumps         []unreadBump
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:      make(map[uuid.UUID]repository.ProductInfo),
		offers:        make(map[uuid.UUID]domain.Offer),
		conversations: make(map[[3]uuid.UUID]uuid.UUID),
	}
}

func (r *fakeRepo) GetProduct(_ context.Context, productID uuid.UUID) (repository.ProductInfo, error) {
	p, ok := r.products[productID]
	if !ok {
		return repository.ProductInfo{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func (r *fakeRepo) CreateOffer(_ context.Context, params repository.CreateOfferParams) (domain.Offer, error) {
	key := [3]uuid.UUID{params.ProductID, params.BuyerID, params.SellerID}
	conversationID, ok := r.conversations[key]
	if !ok {
		conversationID = uuid.New()
		r.conversations[key] = conversationID
	}

	offer := domain.Offer{
		ID:             uuid.New(),
		ProductID:      params.ProductID,
		BuyerID:        params.BuyerID,
		SellerID:       params.SellerID,
		ConversationID: conversationID,
		OfferedCents:   params.OfferedCents,
		OriginalCents:  params.OriginalCents,
		Currency:       params.Currency,
		Status:         domain.StatusPending,
		Message:        params.Message,
		CreatedAt:      params.CreatedAt,
		ExpiresAt:      params.ExpiresAt,
	}
	r.offers[offer.ID] = offer

	snapshot := domain.NewSnapshot(offer)
	r.messages = append(r.messages, repository.InsertMessageParams{
		ConversationID: conversationID,
		SenderID:       params.BuyerID,
		MessageType:    "offer",
		Snapshot:       &snapshot,
		CreatedAt:      params.CreatedAt,
	})
	r.bumps = append(r.bumps, unreadBump{conversationID: conversationID, recipientIsBuyer: false})

	return offer, nil
}

func (r *fakeRepo) GetByID(_ context.Context, offerID uuid.UUID) (domain.Offer, error) {
	offer, ok := r.offers[offerID]
	if !ok {
		return domain.Offer{}, apperr.NotFound("offer not found")
	}
	return offer, nil
}

func (r *fakeRepo) WithOfferForUpdate(ctx context.Context, offerID uuid.UUID, fn func(tx repository.OfferTx, offer domain.Offer) error) error {
	offer, ok := r.offers[offerID]
	if !ok {
		return apperr.NotFound("offer not found")
	}
	tx := &fakeTx{repo: r}
	if err := fn(tx, offer); err != nil {
		return err
	}
	for _, apply := range tx.staged {
		apply()
	}
	return nil
}

func (r *fakeRepo) List(_ context.Context, params repository.ListParams) ([]domain.Offer, int, error) {
	var results []domain.Offer
	for _, offer := range r.offers {
		party := offer.BuyerID == params.UserID || offer.SellerID == params.UserID
		if params.AsBuyer && !params.AsSeller {
			party = offer.BuyerID == params.UserID
		} else if params.AsSeller && !params.AsBuyer {
			party = offer.SellerID == params.UserID
		}
		if !party {
			continue
		}
		if params.Status != nil && offer.Status != *params.Status {
			continue
		}
		results = append(results, offer)
	}
	return results, len(results), nil
}

func (r *fakeRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]domain.Offer, error) {
	var results []domain.Offer
	for _, offer := range r.offers {
		if offer.ProductID == productID {
			results = append(results, offer)
		}
	}
	return results, nil
}

func (r *fakeRepo) ListAdmin(_ context.Context, _, _ int) ([]domain.Offer, int, error) {
	var results []domain.Offer
	for _, offer := range r.offers {
		results = append(results, offer)
	}
	return results, len(results), nil
}

func (r *fakeRepo) ListExpirable(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, offer := range r.offers {
		if offer.Status.Terminal() {
			continue
		}
		if offer.ExpiresAt.Before(now) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeTx struct {
	repo   *fakeRepo
	staged []func()
}

func (t *fakeTx) UpdateStatus(_ context.Context, params repository.UpdateStatusParams) error {
	current, ok := t.repo.offers[params.OfferID]
	if !ok || current.Status != params.ExpectedStatus {
		return apperr.Conflict("offer was modified concurrently")
	}
	t.staged = append(t.staged, func() {
		offer := t.repo.offers[params.OfferID]
		offer.Status = params.NewStatus
		if params.CounterCents != nil {
			offer.CounterCents = params.CounterCents
		}
		if params.Message != nil {
			offer.Message = params.Message
		}
		if params.ExpiresAt != nil {
			offer.ExpiresAt = *params.ExpiresAt
		}
		responded := params.RespondedAt
		offer.RespondedAt = &responded
		t.repo.offers[params.OfferID] = offer
	})
	return nil
}

func (t *fakeTx) InsertMessage(_ context.Context, params repository.InsertMessageParams) (uuid.UUID, error) {
	t.staged = append(t.staged, func() {
		t.repo.messages = append(t.repo.messages, params)
	})
	return uuid.New(), nil
}

func (t *fakeTx) BumpUnread(_ context.Context, conversationID uuid.UUID, recipientIsBuyer bool, _ uuid.UUID, _ time.Time) error {
	t.staged = append(t.staged, func() {
		t.repo.bumps = append(t.repo.bumps, unreadBump{conversationID: conversationID, recipientIsBuyer: recipientIsBuyer})
	})
	return nil
}

func (t *fakeTx) MarkProductSold(_ context.Context, productID uuid.UUID, _ time.Time) error {
	product, ok := t.repo.products[productID]
	if !ok {
		return apperr.NotFound("product not found")
	}
	t.staged = append(t.staged, func() {
		product.IsAvailable = false
		t.repo.products[productID] = product
	})
	return nil
}

func (t *fakeTx) InsertTransaction(_ context.Context, params repository.InsertTransactionParams) (uuid.UUID, error) {
	t.staged = append(t.staged, func() {
		t.repo.transactions = append(t.repo.transactions, params)
	})
	return uuid.New(), nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	var names []string
	for _, event := range b.published {
		names = append(names, event.EventName())
	}
	return names
}

type scheduledExpiry struct {
	offerID uuid.UUID
	at      time.Time
}

type fakeScheduler struct {
	scheduled []scheduledExpiry
}

func (s *fakeScheduler) ScheduleOfferExpiry(_ context.Context, offerID uuid.UUID, at time.Time) error {
	s.scheduled = append(s.scheduled, scheduledExpiry{offerID: offerID, at: at})
	return nil
}

// ----------------------------------------------------------------------------
// Fixture
// ----------------------------------------------------------------------------

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	bus       *recordingBus
	clock     *clock.Mock
	scheduler *fakeScheduler

	buyerID  uuid.UUID
	sellerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	bus := &recordingBus{}
	mock := clock.NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	scheduler := &fakeScheduler{}

	cfg := &config.Config{
		OfferTTL:       24 * time.Hour,
		SweepInterval:  time.Hour,
		SweepBudget:    10 * time.Minute,
		SweepBatchSize: 500,
	}

	svc := New(repo, bus, mock, logger.New("development"), cfg).WithScheduler(scheduler)

	return &fixture{
		svc:       svc,
		repo:      repo,
		bus:       bus,
		clock:     mock,
		scheduler: scheduler,
		buyerID:   uuid.New(),
		sellerID:  uuid.New(),
	}
}

func (f *fixture) addProduct(t *testing.T, priceCents int64, feedType string) uuid.UUID {
	t.Helper()
	product := repository.ProductInfo{
		ID:          uuid.New(),
		SellerID:    f.sellerID,
		PriceCents:  priceCents,
		Currency:    "EUR",
		FeedType:    feedType,
		IsAvailable: true,
	}
	f.repo.products[product.ID] = product
	return product.ID
}

func (f *fixture) createOffer(t *testing.T, productID uuid.UUID, offeredCents int64) domain.Offer {
	t.Helper()
	offer, err := f.svc.Create(context.Background(), CreateOfferInput{
		BuyerID:      f.buyerID,
		ProductID:    productID,
		OfferedCents: offeredCents,
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	return offer
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if got := apperr.GetKind(err); got != kind {
		t.Fatalf("error kind = %v, want %v (error: %v)", got, kind, err)
	}
}

// ----------------------------------------------------------------------------
// Create
// ----------------------------------------------------------------------------

func TestCreate(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)

	offer := f.createOffer(t, productID, 8000)

	if offer.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", offer.Status)
	}
	if offer.OriginalCents != 10000 {
		t.Errorf("original = %d, want snapshot of product price 10000", offer.OriginalCents)
	}
	wantExpiry := f.clock.Now().Add(24 * time.Hour)
	if !offer.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", offer.ExpiresAt, wantExpiry)
	}

	if len(f.repo.messages) != 1 || f.repo.messages[0].MessageType != "offer" {
		t.Errorf("expected one offer-typed message, got %+v", f.repo.messages)
	}
	if len(f.repo.bumps) != 1 || f.repo.bumps[0].recipientIsBuyer {
		t.Errorf("expected one unread bump for the seller, got %+v", f.repo.bumps)
	}
	if len(f.scheduler.scheduled) != 1 || !f.scheduler.scheduled[0].at.Equal(wantExpiry) {
		t.Errorf("expected expiry scheduled at %v, got %+v", wantExpiry, f.scheduler.scheduled)
	}
	if names := f.bus.names(); len(names) != 1 || names[0] != "offers.offer.created" {
		t.Errorf("published events = %v, want [offers.offer.created]", names)
	}
}

func TestCreate_PriceBounds(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)

	for _, price := range []int64{0, -100, 10000, 15000} {
		_, err := f.svc.Create(context.Background(), CreateOfferInput{
			BuyerID:      f.buyerID,
			ProductID:    productID,
			OfferedCents: price,
		})
		wantKind(t, err, apperr.KindValidation)
	}
}

func TestCreate_ProductMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateOfferInput{
		BuyerID:      f.buyerID,
		ProductID:    uuid.New(),
		OfferedCents: 100,
	})
	wantKind(t, err, apperr.KindNotFound)
}

func TestCreate_ProductUnavailable(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	product := f.repo.products[productID]
	product.IsAvailable = false
	f.repo.products[productID] = product

	_, err := f.svc.Create(context.Background(), CreateOfferInput{
		BuyerID:      f.buyerID,
		ProductID:    productID,
		OfferedCents: 8000,
	})
	wantKind(t, err, apperr.KindConflict)
}

func TestCreate_OwnProduct(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)

	_, err := f.svc.Create(context.Background(), CreateOfferInput{
		BuyerID:      f.sellerID,
		ProductID:    productID,
		OfferedCents: 8000,
	})
	wantKind(t, err, apperr.KindValidation)
}

func TestCreate_ConversationReused(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)

	first := f.createOffer(t, productID, 7000)
	_, err := f.svc.Decline(context.Background(), f.sellerID, first.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	second := f.createOffer(t, productID, 8000)

	if first.ConversationID != second.ConversationID {
		t.Error("a second offer on the same triple should reuse the conversation")
	}
}

// ----------------------------------------------------------------------------
// Accept
// ----------------------------------------------------------------------------

func TestAccept_PendingBySeller(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeDiscover)
	offer := f.createOffer(t, productID, 8000)

	result, err := f.svc.Accept(context.Background(), f.sellerID, offer.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	if result.Offer.Status != domain.StatusAccepted {
		t.Errorf("status = %s, want accepted", result.Offer.Status)
	}
	if !result.PaymentRequired {
		t.Error("payment should be required downstream")
	}
	if result.Offer.RespondedAt == nil {
		t.Error("responded_at should be set")
	}

	if product := f.repo.products[productID]; product.IsAvailable {
		t.Error("product should be unavailable after accept")
	}

	if len(f.repo.transactions) != 1 {
		t.Fatalf("expected exactly one transaction, got %d", len(f.repo.transactions))
	}
	tx := f.repo.transactions[0]
	if tx.AmountCents != 8000 || tx.PlatformFeeCents != 1200 || tx.SellerPayoutCents != 6800 {
		t.Errorf("settlement = %d/%d/%d, want 8000/1200/6800", tx.AmountCents, tx.PlatformFeeCents, tx.SellerPayoutCents)
	}

	if names := f.bus.names(); names[len(names)-1] != "offers.offer.accepted" {
		t.Errorf("last event = %v, want offers.offer.accepted", names)
	}
}

func TestAccept_CounteredByBuyer(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	_, err := f.svc.Counter(context.Background(), CounterOfferInput{
		SellerID:     f.sellerID,
		OfferID:      offer.ID,
		CounterCents: 9000,
	})
	if err != nil {
		t.Fatalf("counter: %v", err)
	}

	result, err := f.svc.Accept(context.Background(), f.buyerID, offer.ID)
	if err != nil {
		t.Fatalf("accept counter: %v", err)
	}

	if result.Offer.Status != domain.StatusAccepted {
		t.Errorf("status = %s, want accepted", result.Offer.Status)
	}
	tx := f.repo.transactions[0]
	if tx.AmountCents != 9000 {
		t.Errorf("settlement amount = %d, want the counter price 9000", tx.AmountCents)
	}
	if tx.PlatformFeeCents != 450 || tx.SellerPayoutCents != 8550 {
		t.Errorf("fee split = %d/%d, want 450/8550", tx.PlatformFeeCents, tx.SellerPayoutCents)
	}
}

func TestAccept_WrongParty(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	// The buyer cannot accept their own pending offer.
	_, err := f.svc.Accept(context.Background(), f.buyerID, offer.ID)
	wantKind(t, err, apperr.KindForbidden)

	// Nor can a stranger.
	_, err = f.svc.Accept(context.Background(), uuid.New(), offer.ID)
	wantKind(t, err, apperr.KindForbidden)
}

func TestAccept_ProductAlreadySold(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	first := f.createOffer(t, productID, 8000)

	second, err := f.svc.Create(context.Background(), CreateOfferInput{
		BuyerID:      uuid.New(),
		ProductID:    productID,
		OfferedCents: 7500,
	})
	if err != nil {
		t.Fatalf("second offer: %v", err)
	}

	if _, err := f.svc.Accept(context.Background(), f.sellerID, first.ID); err != nil {
		t.Fatalf("accept first: %v", err)
	}

	// The product is sold now; the other pending offer cannot produce a
	// second sale.
	_, err = f.svc.Accept(context.Background(), f.sellerID, second.ID)
	wantKind(t, err, apperr.KindConflict)

	if f.repo.offers[second.ID].Status != domain.StatusPending {
		t.Errorf("second offer = %s, want still pending", f.repo.offers[second.ID].Status)
	}
	if len(f.repo.transactions) != 1 {
		t.Errorf("got %d transactions, want 1", len(f.repo.transactions))
	}
}

func TestAccept_AlreadyResolved(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	if _, err := f.svc.Decline(context.Background(), f.sellerID, offer.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	_, err := f.svc.Accept(context.Background(), f.sellerID, offer.ID)
	wantKind(t, err, apperr.KindConflict)
}

func TestAccept_AfterWindowLapsed(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	f.clock.Advance(25 * time.Hour)

	_, err := f.svc.Accept(context.Background(), f.sellerID, offer.ID)
	wantKind(t, err, apperr.KindGone)

	stored := f.repo.offers[offer.ID]
	if stored.Status != domain.StatusExpired {
		t.Errorf("status = %s, want expired after a late accept", stored.Status)
	}
	if len(f.repo.transactions) != 0 {
		t.Error("no transaction should exist for a lapsed offer")
	}
	if names := f.bus.names(); names[len(names)-1] != "offers.offer.expired" {
		t.Errorf("last event = %v, want offers.offer.expired", names)
	}
}

func TestAccept_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Accept(context.Background(), f.sellerID, uuid.New())
	wantKind(t, err, apperr.KindNotFound)
}

// ----------------------------------------------------------------------------
// Decline
// ----------------------------------------------------------------------------

func TestDecline(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	declined, err := f.svc.Decline(context.Background(), f.sellerID, offer.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}

	if declined.Status != domain.StatusDeclined {
		t.Errorf("status = %s, want declined", declined.Status)
	}
	if product := f.repo.products[productID]; !product.IsAvailable {
		t.Error("product must stay available after a decline")
	}
	if len(f.repo.transactions) != 0 {
		t.Error("declining must not create a transaction")
	}
	if names := f.bus.names(); names[len(names)-1] != "offers.offer.declined" {
		t.Errorf("last event = %v, want offers.offer.declined", names)
	}
}

func TestDecline_CounteredByEitherParty(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)

	// Buyer rejects the counter.
	first := f.createOffer(t, productID, 8000)
	if _, err := f.svc.Counter(context.Background(), CounterOfferInput{SellerID: f.sellerID, OfferID: first.ID, CounterCents: 9000}); err != nil {
		t.Fatalf("counter: %v", err)
	}
	if _, err := f.svc.Decline(context.Background(), f.buyerID, first.ID); err != nil {
		t.Fatalf("buyer decline of counter: %v", err)
	}

	// Seller withdraws their own counter.
	second := f.createOffer(t, productID, 7000)
	if _, err := f.svc.Counter(context.Background(), CounterOfferInput{SellerID: f.sellerID, OfferID: second.ID, CounterCents: 9000}); err != nil {
		t.Fatalf("counter: %v", err)
	}
	if _, err := f.svc.Decline(context.Background(), f.sellerID, second.ID); err != nil {
		t.Fatalf("seller decline of counter: %v", err)
	}
}

func TestDecline_WrongParty(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	_, err := f.svc.Decline(context.Background(), f.buyerID, offer.ID)
	wantKind(t, err, apperr.KindForbidden)
}

// ----------------------------------------------------------------------------
// Counter
// ----------------------------------------------------------------------------

func TestCounter(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	f.clock.Advance(2 * time.Hour)
	note := "best I can do"
	countered, err := f.svc.Counter(context.Background(), CounterOfferInput{
		SellerID:     f.sellerID,
		OfferID:      offer.ID,
		CounterCents: 9000,
		Message:      &note,
	})
	if err != nil {
		t.Fatalf("counter: %v", err)
	}

	if countered.Status != domain.StatusCountered {
		t.Errorf("status = %s, want countered", countered.Status)
	}
	if countered.CounterCents == nil || *countered.CounterCents != 9000 {
		t.Errorf("counter = %v, want 9000", countered.CounterCents)
	}
	wantExpiry := f.clock.Now().Add(24 * time.Hour)
	if !countered.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want reset to %v", countered.ExpiresAt, wantExpiry)
	}

	last := f.repo.bumps[len(f.repo.bumps)-1]
	if !last.recipientIsBuyer {
		t.Error("counter must bump the buyer's unread counter")
	}
	if len(f.scheduler.scheduled) != 2 {
		t.Errorf("expected a second scheduled expiry for the reset window, got %d", len(f.scheduler.scheduled))
	}
	if names := f.bus.names(); names[len(names)-1] != "offers.offer.countered" {
		t.Errorf("last event = %v, want offers.offer.countered", names)
	}
}

func TestCounter_PriceBounds(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	for _, price := range []int64{0, -50, 10000, 12000} {
		_, err := f.svc.Counter(context.Background(), CounterOfferInput{
			SellerID:     f.sellerID,
			OfferID:      offer.ID,
			CounterCents: price,
		})
		wantKind(t, err, apperr.KindValidation)
	}
}

func TestCounter_OnlyPending(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	if _, err := f.svc.Counter(context.Background(), CounterOfferInput{SellerID: f.sellerID, OfferID: offer.ID, CounterCents: 9000}); err != nil {
		t.Fatalf("counter: %v", err)
	}

	// A second counter on an already-countered offer is illegal.
	_, err := f.svc.Counter(context.Background(), CounterOfferInput{SellerID: f.sellerID, OfferID: offer.ID, CounterCents: 8500})
	wantKind(t, err, apperr.KindConflict)
}

func TestCounter_WrongParty(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	_, err := f.svc.Counter(context.Background(), CounterOfferInput{SellerID: f.buyerID, OfferID: offer.ID, CounterCents: 9000})
	wantKind(t, err, apperr.KindForbidden)
}

// ----------------------------------------------------------------------------
// Expiry
// ----------------------------------------------------------------------------

func TestExpireOne_Idempotent(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	f.clock.Advance(25 * time.Hour)

	expired, err := f.svc.ExpireOne(context.Background(), offer.ID)
	if err != nil || !expired {
		t.Fatalf("first expire = (%v, %v), want (true, nil)", expired, err)
	}

	eventsBefore := len(f.bus.published)
	expired, err = f.svc.ExpireOne(context.Background(), offer.ID)
	if err != nil || expired {
		t.Fatalf("second expire = (%v, %v), want (false, nil)", expired, err)
	}
	if len(f.bus.published) != eventsBefore {
		t.Error("a no-op expire must not publish duplicate notifications")
	}
}

func TestExpireOne_SkipsExtendedWindow(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	offer := f.createOffer(t, productID, 8000)

	// A counter near the deadline restarts the window; the expiry task
	// scheduled for the original deadline must then be a no-op.
	f.clock.Advance(23 * time.Hour)
	if _, err := f.svc.Counter(context.Background(), CounterOfferInput{SellerID: f.sellerID, OfferID: offer.ID, CounterCents: 9000}); err != nil {
		t.Fatalf("counter: %v", err)
	}

	f.clock.Advance(2 * time.Hour) // past the original deadline, inside the new one
	expired, err := f.svc.ExpireOne(context.Background(), offer.ID)
	if err != nil || expired {
		t.Fatalf("expire = (%v, %v), want (false, nil) while the window is open", expired, err)
	}
	if f.repo.offers[offer.ID].Status != domain.StatusCountered {
		t.Error("offer must remain countered while its extended window is open")
	}
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)

	overdue := f.createOffer(t, productID, 8000)

	f.clock.Advance(12 * time.Hour)
	fresh := f.createOffer(t, productID, 7000)

	f.clock.Advance(13 * time.Hour) // overdue is past 24h, fresh is not

	expired, failed, err := f.svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if expired != 1 || failed != 0 {
		t.Fatalf("sweep = (%d expired, %d failed), want (1, 0)", expired, failed)
	}
	if f.repo.offers[overdue.ID].Status != domain.StatusExpired {
		t.Error("overdue offer should be expired")
	}
	if f.repo.offers[fresh.ID].Status != domain.StatusPending {
		t.Error("fresh offer must be untouched")
	}

	// Second sweep with no intervening action is a no-op.
	expired, failed, err = f.svc.SweepExpired(context.Background())
	if err != nil || expired != 0 || failed != 0 {
		t.Fatalf("second sweep = (%d, %d, %v), want (0, 0, nil)", expired, failed, err)
	}
}

func TestSweepExpired_DurationFromInjectedClock(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	f.svc.log = &logger.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	f.createOffer(t, productID, 8000)
	f.clock.Advance(25 * time.Hour)

	if _, _, err := f.svc.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// The run report measures elapsed time with the same source the run
	// started from; the fixed test clock yields a zero duration.
	if out := buf.String(); !strings.Contains(out, "duration_ms=0") {
		t.Errorf("sweep log = %q, want a duration_ms=0 report", out)
	}
}

// ----------------------------------------------------------------------------
// Reads
// ----------------------------------------------------------------------------

func TestList_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	status := domain.OfferStatus("bogus")
	_, _, err := f.svc.List(context.Background(), repository.ListParams{UserID: f.buyerID, Status: &status})
	wantKind(t, err, apperr.KindValidation)
}

func TestProductOffers_SellerOnly(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct(t, 10000, domain.FeedTypeCommunity)
	f.createOffer(t, productID, 8000)

	offers, err := f.svc.ProductOffers(context.Background(), f.sellerID, productID)
	if err != nil {
		t.Fatalf("product offers: %v", err)
	}
	if len(offers) != 1 {
		t.Errorf("got %d offers, want 1", len(offers))
	}

	_, err = f.svc.ProductOffers(context.Background(), f.buyerID, productID)
	wantKind(t, err, apperr.KindForbidden)
}
