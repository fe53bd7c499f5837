package model

import (
	"errors"
	"time"
)

// RetentionDays is the window after which the store may physically delete a
// record regardless of status. Data minimization, not a correctness mechanism.
const RetentionDays = 90

var (
	ErrEmptyType      = errors.New("event type must not be empty")
	ErrEmptySource    = errors.New("event source must not be empty")
	ErrUnknownStatus  = errors.New("unknown event status")
	ErrMissingPayload = errors.New("event payload must be an object")
)

// Status is the delivery state of an event. Pending is the initial state;
// delivered and failed are terminal for the automatic pipeline. A failed
// event is never auto-retried, manual resubmission is a new event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusDelivered, StatusFailed:
		return nil
	}

	return ErrUnknownStatus
}

// Terminal reports whether the automatic pipeline may still move the event.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// Event is the sole persisted entity. The storage key is the composite
// (ID, CreatedAt); ID alone is not guaranteed globally sortable.
type Event struct {
	ID        string         `json:"id"         dynamodbav:"id"`
	CreatedAt time.Time      `json:"created_at" dynamodbav:"created_at"`
	Type      string         `json:"type"       dynamodbav:"type"`
	Source    string         `json:"source"     dynamodbav:"source"`
	Payload   map[string]any `json:"payload"    dynamodbav:"payload"`
	Status    Status         `json:"status"     dynamodbav:"status"`
	UpdatedAt time.Time      `json:"updated_at" dynamodbav:"updated_at"`

	// DeliveryAttempts counts attempts made by the dispatcher or by repeated
	// acknowledgment calls. LastDeliveryAttempt is nil iff it is zero; the
	// attribute being absent is what makes the attempt-window index sparse.
	DeliveryAttempts    int        `json:"delivery_attempts"               dynamodbav:"delivery_attempts"`
	LastDeliveryAttempt *time.Time `json:"last_delivery_attempt,omitempty" dynamodbav:"last_delivery_attempt,omitempty"`
	DeliveryLatencyMS   *int64     `json:"delivery_latency_ms,omitempty"   dynamodbav:"delivery_latency_ms,omitempty"`
	ErrorMessage        string     `json:"error_message,omitempty"         dynamodbav:"error_message,omitempty"`

	// ExpiresAt is the epoch-seconds TTL attribute, fixed at creation.
	ExpiresAt int64 `json:"expires_at" dynamodbav:"expires_at"`
}

// NewEvent builds a pending event with creation-time bookkeeping applied.
// The id is assigned by the caller so request layers can report it back.
func NewEvent(id, eventType, source string, payload map[string]any, now time.Time) *Event {
	return &Event{
		ID:        id,
		CreatedAt: now,
		Type:      eventType,
		Source:    source,
		Payload:   payload,
		Status:    StatusPending,
		UpdatedAt: now,
		ExpiresAt: now.Add(RetentionDays * 24 * time.Hour).Unix(),
	}
}

// Validate checks the producer-supplied fields before persistence.
func (e *Event) Validate() error {
	if e.Type == "" {
		return ErrEmptyType
	}

	if e.Source == "" {
		return ErrEmptySource
	}

	if e.Payload == nil {
		return ErrMissingPayload
	}

	return e.Status.Validate()
}

// Latency is the delivery latency relative to creation, in milliseconds.
func (e *Event) Latency(now time.Time) int64 {
	return now.Sub(e.CreatedAt).Milliseconds()
}
