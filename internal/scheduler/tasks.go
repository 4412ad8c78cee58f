// Package scheduler provides delayed and periodic background work: the
// asynq task queue for precise per-offer expiry checks and the periodic
// sweep that catches anything the queue misses.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOfferExpire = "offers.expire"

type OfferExpirePayload struct {
	OfferID string `json:"offerId"`
}

func NewOfferExpireTask(payload OfferExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOfferExpire, data), nil
}

func ParseOfferExpirePayload(task *asynq.Task) (OfferExpirePayload, error) {
	var payload OfferExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OfferExpirePayload{}, err
	}
	return payload, nil
}
