// Package handlers implements the request-serving layer: event ingestion,
// inbox polling, acknowledgment, compliance deletion, metrics reads, the
// token exchange and the inbound webhook receiver. Handlers are stateless;
// everything they touch is injected at construction.
package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventrelay/eventrelay/internal/auth"
	"github.com/eventrelay/eventrelay/internal/inbox"
	"github.com/eventrelay/eventrelay/internal/metrics"
	"github.com/eventrelay/eventrelay/internal/store"
)

type Handler struct {
	store      store.EventStore
	inbox      *inbox.Service
	aggregator *metrics.Aggregator
	issuer     *auth.Issuer

	// webhookSecret empty means inbound signature verification is disabled;
	// that opt-in posture is deliberate.
	webhookSecret string

	now   func() time.Time
	newID func() string
}

type Option func(*Handler)

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(h *Handler) {
		h.newID = newID
	}
}

func New(
	eventStore store.EventStore,
	inboxService *inbox.Service,
	aggregator *metrics.Aggregator,
	issuer *auth.Issuer,
	webhookSecret string,
	opts ...Option,
) *Handler {
	h := &Handler{
		store:         eventStore,
		inbox:         inboxService,
		aggregator:    aggregator,
		issuer:        issuer,
		webhookSecret: webhookSecret,
		now:           time.Now,
		newID:         uuid.NewString,
	}

	for _, o := range opts {
		o(h)
	}

	return h
}
