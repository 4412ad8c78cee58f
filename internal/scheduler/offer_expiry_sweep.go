package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"marketplace_backend/platform/logger"
)

const (
	defaultSweepInterval = time.Hour
	defaultSweepBudget   = 10 * time.Minute
)

// Sweeper is the part of the negotiation engine the sweep loop drives.
type Sweeper interface {
	SweepExpired(ctx context.Context) (expired int, failed int, err error)
}

// OfferExpirySweeper periodically force-expires overdue offers. It is
// the safety net behind the per-offer scheduled tasks: even with an
// empty queue, no offer stays actionable past its window for more than
// one interval.
type OfferExpirySweeper struct {
	sweeper  Sweeper
	log      *logger.Logger
	interval time.Duration
	budget   time.Duration
	running  atomic.Bool
}

func NewOfferExpirySweeper(sweeper Sweeper, log *logger.Logger, interval, budget time.Duration) *OfferExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if budget <= 0 {
		budget = defaultSweepBudget
	}

	return &OfferExpirySweeper{
		sweeper:  sweeper,
		log:      log,
		interval: interval,
		budget:   budget,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *OfferExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.sweeper == nil {
		return
	}

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs a single budgeted sweep. A tick that fires while the
// previous run is still going is skipped rather than stacked. Returns
// whether the sweep actually ran.
func (s *OfferExpirySweeper) sweepOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("offer expiry sweep still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("offer expiry sweep panicked", "panic", r)
		}
	}()

	sweepCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	if _, _, err := s.sweeper.SweepExpired(sweepCtx); err != nil {
		// Logged and retried on the next tick.
		s.log.Warn("offer expiry sweep failed", "error", err)
	}

	return true
}
