// Package memory is an in-process event store used by tests and local runs.
// It implements the same contract as the DynamoDB store, including the
// sparse semantics of the attempt-window index.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	events map[string]*model.Event // keyed by composite (id, created_at)
	err    error
}

var _ store.EventStore = (*Store)(nil)

func New() *Store {
	return &Store{events: make(map[string]*model.Event)}
}

// FailWith makes every subsequent call return err, simulating a backend
// outage. FailWith(nil) restores normal operation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func compositeKey(id string, createdAt time.Time) string {
	return id + "|" + createdAt.UTC().Format(time.RFC3339Nano)
}

func (s *Store) Put(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	clone := *event
	s.events[compositeKey(event.ID, event.CreatedAt)] = &clone

	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	for _, event := range s.events {
		if event.ID == id {
			clone := *event
			return &clone, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *Store) UpdateFields(_ context.Context, id string, createdAt time.Time, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	event, ok := s.events[compositeKey(id, createdAt)]
	if !ok {
		return store.ErrNotFound
	}

	if fields.Status != nil {
		event.Status = *fields.Status
	}

	if fields.UpdatedAt != nil {
		event.UpdatedAt = *fields.UpdatedAt
	}

	if fields.DeliveryAttempts != nil {
		event.DeliveryAttempts = *fields.DeliveryAttempts
	}

	if fields.LastDeliveryAttempt != nil {
		attempt := *fields.LastDeliveryAttempt
		event.LastDeliveryAttempt = &attempt
	}

	if fields.DeliveryLatencyMS != nil {
		latency := *fields.DeliveryLatencyMS
		event.DeliveryLatencyMS = &latency
	}

	if fields.ErrorMessage != nil {
		event.ErrorMessage = *fields.ErrorMessage
	}

	return nil
}

func (s *Store) Delete(_ context.Context, id string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	key := compositeKey(id, createdAt)

	if _, ok := s.events[key]; !ok {
		return store.ErrNotFound
	}

	delete(s.events, key)

	return nil
}

func (s *Store) QueryByStatus(
	_ context.Context,
	status model.Status,
	order store.Order,
	limit int,
) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	matches := make([]*model.Event, 0)

	for _, event := range s.events {
		if event.Status == status {
			clone := *event
			matches = append(matches, &clone)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if order == store.Descending {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}

		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

func (s *Store) QueryByStatusAndAttemptWindow(
	_ context.Context,
	status model.Status,
	from, to time.Time,
) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	matches := make([]*model.Event, 0)

	for _, event := range s.events {
		// Sparse index semantics: records without the attribute never appear.
		if event.Status != status || event.LastDeliveryAttempt == nil {
			continue
		}

		attempt := *event.LastDeliveryAttempt
		if attempt.Before(from) || attempt.After(to) {
			continue
		}

		clone := *event
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastDeliveryAttempt.Before(*matches[j].LastDeliveryAttempt)
	})

	return matches, nil
}

func (s *Store) Scan(_ context.Context, limit int) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	events := make([]*model.Event, 0, len(s.events))

	for _, event := range s.events {
		clone := *event
		events = append(events, &clone)
	}

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}
