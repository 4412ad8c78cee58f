package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCanTransition_LegalEdges(t *testing.T) {
	legal := []struct {
		from, to OfferStatus
	}{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusDeclined},
		{StatusPending, StatusCountered},
		{StatusPending, StatusExpired},
		{StatusCountered, StatusAccepted},
		{StatusCountered, StatusDeclined},
		{StatusCountered, StatusExpired},
	}

	for _, edge := range legal {
		if !edge.from.CanTransition(edge.to) {
			t.Errorf("expected %s -> %s to be legal", edge.from, edge.to)
		}
	}
}

func TestCanTransition_IllegalEdges(t *testing.T) {
	all := []OfferStatus{StatusPending, StatusAccepted, StatusDeclined, StatusExpired, StatusCountered}

	legal := map[OfferStatus]map[OfferStatus]bool{
		StatusPending:   {StatusAccepted: true, StatusDeclined: true, StatusCountered: true, StatusExpired: true},
		StatusCountered: {StatusAccepted: true, StatusDeclined: true, StatusExpired: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			if got := from.CanTransition(to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	for status, terminal := range map[OfferStatus]bool{
		StatusPending:   false,
		StatusCountered: false,
		StatusAccepted:  true,
		StatusDeclined:  true,
		StatusExpired:   true,
	} {
		if got := status.Terminal(); got != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, terminal)
		}
	}
}

func TestExpiredBy(t *testing.T) {
	deadline := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	offer := Offer{ExpiresAt: deadline}

	if offer.ExpiredBy(deadline.Add(-time.Second)) {
		t.Error("offer should not be expired before the deadline")
	}
	if !offer.ExpiredBy(deadline) {
		t.Error("offer should be expired exactly at the deadline")
	}
	if !offer.ExpiredBy(deadline.Add(time.Hour)) {
		t.Error("offer should be expired after the deadline")
	}
}

func TestAcceptedAmount(t *testing.T) {
	counter := int64(9000)

	pending := Offer{ID: uuid.New(), Status: StatusPending, OfferedCents: 8000}
	if got := pending.AcceptedAmount(); got != 8000 {
		t.Errorf("pending accepted amount = %d, want 8000", got)
	}

	countered := Offer{ID: uuid.New(), Status: StatusCountered, OfferedCents: 8000, CounterCents: &counter}
	if got := countered.AcceptedAmount(); got != 9000 {
		t.Errorf("countered accepted amount = %d, want 9000", got)
	}
}
