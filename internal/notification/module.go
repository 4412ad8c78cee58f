// Package notification turns offer domain events into user-facing
// notifications: an in-app feed entry always, plus a best-effort email
// when SMTP is configured. Domain modules never talk to channels
// directly; they publish events and this module fans out.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"marketplace_backend/internal/events"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/notification/email"
	notifhandler "marketplace_backend/internal/notification/handler"
	"marketplace_backend/internal/notification/inapp"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
)

const resourceTypeOffer = "offer"

// Module wires event subscriptions and the notification feed endpoint.
type Module struct {
	inapp   *inapp.Service
	email   email.Sender
	users   *userReader
	handler *notifhandler.Handler
	log     *logger.Logger
	baseURL string
}

// NewModule creates the notification module and subscribes it to the
// offer lifecycle events.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, cfg config.NotificationConfig) *Module {
	inappRepo := inapp.NewRepository(pool)
	inappSvc := inapp.NewService(inappRepo, log)

	m := &Module{
		inapp:   inappSvc,
		users:   &userReader{pool: pool},
		handler: notifhandler.New(inappSvc),
		log:     log,
		baseURL: cfg.GetAppBaseURL(),
	}

	bus.Subscribe("offers.offer.created", events.HandlerFunc(m.onOfferCreated))
	bus.Subscribe("offers.offer.accepted", events.HandlerFunc(m.onOfferAccepted))
	bus.Subscribe("offers.offer.declined", events.HandlerFunc(m.onOfferDeclined))
	bus.Subscribe("offers.offer.countered", events.HandlerFunc(m.onOfferCountered))
	bus.Subscribe("offers.offer.expired", events.HandlerFunc(m.onOfferExpired))

	return m
}

// SetEmailSender enables the email channel.
func (m *Module) SetEmailSender(sender email.Sender) {
	m.email = sender
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

func (m *Module) onOfferCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OfferCreated)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	return m.deliver(ctx, e.SellerID, e.OfferID, delivery{
		title:    "New offer received",
		body:     fmt.Sprintf("A buyer offered %s for your listing.", formatAmount(e.OfferedCents, e.Currency)),
		category: "info",
		subject:  "You received a new offer",
	})
}

func (m *Module) onOfferAccepted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OfferAccepted)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	// Both parties hear about an accepted deal.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.deliver(gctx, e.BuyerID, e.OfferID, delivery{
			title:    "Offer accepted",
			body:     fmt.Sprintf("Your offer of %s was accepted. Complete the payment to finish the purchase.", formatAmount(e.AmountCents, e.Currency)),
			category: "success",
			subject:  "Your offer was accepted",
		})
	})
	g.Go(func() error {
		return m.deliver(gctx, e.SellerID, e.OfferID, delivery{
			title:    "Sale agreed",
			body:     fmt.Sprintf("You accepted an offer of %s. The buyer has been asked to pay.", formatAmount(e.AmountCents, e.Currency)),
			category: "success",
			subject:  "You have a sale pending payment",
		})
	})
	return g.Wait()
}

func (m *Module) onOfferDeclined(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OfferDeclined)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	return m.deliver(ctx, e.BuyerID, e.OfferID, delivery{
		title:    "Offer declined",
		body:     "Your offer was declined. You can make a new offer or keep browsing.",
		category: "warning",
		subject:  "Your offer was declined",
	})
}

func (m *Module) onOfferCountered(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OfferCountered)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	return m.deliver(ctx, e.BuyerID, e.OfferID, delivery{
		title:    "Counter offer received",
		body:     fmt.Sprintf("The seller countered with %s. The offer window has restarted.", formatAmount(e.CounterCents, e.Currency)),
		category: "info",
		subject:  "The seller made a counter offer",
	})
}

func (m *Module) onOfferExpired(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OfferExpired)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.deliver(gctx, e.BuyerID, e.OfferID, delivery{
			title:    "Offer expired",
			body:     "Your offer expired without a response.",
			category: "warning",
			subject:  "Your offer expired",
		})
	})
	g.Go(func() error {
		return m.deliver(gctx, e.SellerID, e.OfferID, delivery{
			title:    "Offer expired",
			body:     "An offer on your listing expired before you responded.",
			category: "info",
			subject:  "An offer on your listing expired",
		})
	})
	return g.Wait()
}

type delivery struct {
	title    string
	body     string
	category string
	subject  string
}

// deliver writes the in-app entry and, when configured, sends the email.
// Either channel failing is logged; the other still goes out.
func (m *Module) deliver(ctx context.Context, userID, offerID uuid.UUID, d delivery) error {
	resourceID := offerID
	inappErr := m.inapp.Send(ctx, inapp.SendParams{
		UserID:       userID,
		Title:        d.title,
		Content:      d.body,
		ResourceID:   &resourceID,
		ResourceType: resourceTypeOffer,
		Category:     d.category,
	})

	if m.email == nil {
		return inappErr
	}

	address, err := m.users.emailFor(ctx, userID)
	if err != nil || address == "" {
		if err != nil {
			m.log.Error("failed to resolve notification recipient", "user_id", userID.String(), "error", err)
		}
		return inappErr
	}

	ctaURL := fmt.Sprintf("%s/offers/%s", m.baseURL, offerID)
	if err := m.email.Send(ctx, address, d.subject, d.title, d.body, ctaURL); err != nil {
		m.log.Error("failed to send notification email", "user_id", userID.String(), "error", err)
	}

	return inappErr
}

// userReader resolves recipient email addresses from the externally
// managed users table.
type userReader struct {
	pool *pgxpool.Pool
}

func (r *userReader) emailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var address *string
	err := r.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup user email: %w", err)
	}
	if address == nil {
		return "", nil
	}
	return *address, nil
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
