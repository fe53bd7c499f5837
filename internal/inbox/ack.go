package inbox

import (
	"context"
	"time"

	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/store"
)

// Receipt is the caller-visible result of an acknowledgment.
type Receipt struct {
	ID        string       `json:"id"`
	Status    model.Status `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
	LatencyMS int64        `json:"delivery_latency_ms"`
}

// Acknowledge marks an event terminally delivered and records its delivery
// latency. The store's true key is (id, created_at), so the partial key is
// first resolved to the full composite key, then the update addresses that
// exact record. Keep this an explicit two-call sequence; a store with
// composite keys cannot be mutated by partial key alone.
//
// Acknowledging an already-delivered event succeeds again: the status stays
// delivered but updated_at and last_delivery_attempt are re-stamped and
// delivery_attempts increments further. Consumers depend on that behavior,
// so it is deliberate and must not be tightened.
func (s *Service) Acknowledge(ctx context.Context, id string) (*Receipt, error) {
	event, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := model.StatusDelivered
	attempts := event.DeliveryAttempts + 1
	latency := event.Latency(now)

	err = s.store.UpdateFields(ctx, event.ID, event.CreatedAt, store.Fields{
		Status:              &status,
		UpdatedAt:           &now,
		DeliveryAttempts:    &attempts,
		LastDeliveryAttempt: &now,
		DeliveryLatencyMS:   &latency,
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{
		ID:        event.ID,
		Status:    status,
		UpdatedAt: now,
		LatencyMS: latency,
	}, nil
}

// Delete is the operator-initiated compliance erasure path: unconditional
// and immediate regardless of status. Same two-step key resolution as
// Acknowledge. Returns store.ErrNotFound when the id is already absent.
func (s *Service) Delete(ctx context.Context, id string) error {
	event, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.store.Delete(ctx, event.ID, event.CreatedAt)
}
