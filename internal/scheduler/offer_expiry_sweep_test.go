package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace_backend/platform/logger"
)

type blockingSweeper struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	err     error
}

func (s *blockingSweeper) SweepExpired(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
	return 0, 0, s.err
}

func (s *blockingSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSweepOnce_SkipsWhileRunning(t *testing.T) {
	sweeper := &blockingSweeper{release: make(chan struct{})}
	s := NewOfferExpirySweeper(sweeper, logger.New("development"), time.Hour, time.Minute)

	done := make(chan bool)
	go func() {
		done <- s.sweepOnce(context.Background())
	}()

	// Wait until the first sweep is inside SweepExpired.
	for sweeper.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	if ran := s.sweepOnce(context.Background()); ran {
		t.Error("a tick firing during an active sweep must be skipped")
	}

	close(sweeper.release)
	if ran := <-done; !ran {
		t.Error("the first sweep should have run")
	}

	// With the first sweep finished, the next tick runs again.
	if ran := s.sweepOnce(context.Background()); !ran {
		t.Error("a tick after the sweep finished must run")
	}
	if got := sweeper.callCount(); got != 2 {
		t.Errorf("sweeper called %d times, want 2", got)
	}
}

func TestSweepOnce_ErrorDoesNotStopFutureRuns(t *testing.T) {
	sweeper := &blockingSweeper{err: errors.New("db down")}
	s := NewOfferExpirySweeper(sweeper, logger.New("development"), time.Hour, time.Minute)

	if ran := s.sweepOnce(context.Background()); !ran {
		t.Fatal("sweep should run despite the sweeper failing")
	}
	if ran := s.sweepOnce(context.Background()); !ran {
		t.Fatal("a failed sweep must not block the next one")
	}
	if got := sweeper.callCount(); got != 2 {
		t.Errorf("sweeper called %d times, want 2", got)
	}
}

func TestNewOfferExpirySweeper_Defaults(t *testing.T) {
	s := NewOfferExpirySweeper(&blockingSweeper{}, logger.New("development"), 0, 0)
	if s.interval != defaultSweepInterval {
		t.Errorf("interval = %v, want %v", s.interval, defaultSweepInterval)
	}
	if s.budget != defaultSweepBudget {
		t.Errorf("budget = %v, want %v", s.budget, defaultSweepBudget)
	}
}
