package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	offersservice "marketplace_backend/internal/offers/service"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
)

// Worker consumes scheduled tasks from the queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	offers *offersservice.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, offers *offersservice.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		offers: offers,
		log:    log,
	}

	mux.HandleFunc(TaskOfferExpire, w.handleOfferExpire)

	return w, nil
}

// handleOfferExpire force-expires the offer if its window has lapsed.
// Offers that were resolved or whose window was extended are a no-op.
func (w *Worker) handleOfferExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOfferExpirePayload(task)
	if err != nil {
		return err
	}

	offerID, err := uuid.Parse(payload.OfferID)
	if err != nil {
		return err
	}

	expired, err := w.offers.ExpireOne(ctx, offerID)
	if err != nil {
		// A deleted offer is nothing to retry.
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	if expired {
		w.log.Info("scheduled expiry applied", "offer_id", payload.OfferID)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
