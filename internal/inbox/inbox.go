// Package inbox is the read-and-acknowledge surface over the event store:
// polling consumers list pending events and mark them terminally delivered.
package inbox

import (
	"context"
	"time"

	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/store"
)

// MaxLimit caps how many pending events a single poll may return.
const MaxLimit = 100

type Service struct {
	store store.EventStore
	now   Clock
}

// Clock makes status-mutation timestamps injectable for tests.
type Clock func() time.Time

func New(eventStore store.EventStore, opts ...Option) *Service {
	s := &Service{
		store: eventStore,
		now:   time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

type Option func(*Service)

func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.now = clock
	}
}

// ListPending returns pending events in reverse-creation order. It is a pure
// read: events stay pending until explicitly acknowledged, so polling is
// non-destructive and safe to repeat.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*model.Event, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	return s.store.QueryByStatus(ctx, model.StatusPending, store.Descending, limit)
}
