package notification

import (
	"context"
	"testing"

	"marketplace_backend/internal/events"
	"marketplace_backend/platform/logger"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{1234, "EUR", "EUR 12.34"},
		{500, "USD", "USD 5.00"},
		{99, "EUR", "EUR 0.99"},
		{100000, "EUR", "EUR 1000.00"},
	}

	for _, tc := range cases {
		if got := formatAmount(tc.cents, tc.currency); got != tc.want {
			t.Errorf("formatAmount(%d, %q) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}

func TestHandlersRejectMismatchedEvents(t *testing.T) {
	m := &Module{log: logger.New("development")}
	ctx := context.Background()

	// A handler subscribed to one event name must never act on a payload
	// of another type; it reports the wiring bug instead.
	wrong := events.OfferDeclined{BaseEvent: events.NewBaseEvent()}

	handlers := map[string]func(context.Context, events.Event) error{
		"created":   m.onOfferCreated,
		"accepted":  m.onOfferAccepted,
		"countered": m.onOfferCountered,
		"expired":   m.onOfferExpired,
	}

	for name, handler := range handlers {
		if err := handler(ctx, wrong); err == nil {
			t.Errorf("%s handler accepted a mismatched event type", name)
		}
	}
}
