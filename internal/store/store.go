package store

import (
	"context"
	"errors"
	"time"

	"github.com/eventrelay/eventrelay/internal/model"
)

const DefaultLimit = 100

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("event not found")

	// ErrStoreUnavailable wraps backend transport failures. It is a retryable
	// infrastructure error for the caller; the store never retries internally.
	ErrStoreUnavailable = errors.New("event store unavailable")
)

// Order is the sort direction over the created_at range key.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Fields names the attributes of a partial update. Only non-nil members are
// written; concurrent partial updates to different fields on the same record
// must both apply.
type Fields struct {
	Status              *model.Status
	UpdatedAt           *time.Time
	DeliveryAttempts    *int
	LastDeliveryAttempt *time.Time
	DeliveryLatencyMS   *int64
	ErrorMessage        *string
}

// IsZero reports whether the update names no fields at all.
func (f Fields) IsZero() bool {
	return f.Status == nil && f.UpdatedAt == nil && f.DeliveryAttempts == nil &&
		f.LastDeliveryAttempt == nil && f.DeliveryLatencyMS == nil && f.ErrorMessage == nil
}

// EventStore is the persistence contract for events. The true key is the
// composite (id, created_at); GetByID resolves the full key from the partial
// one so mutating calls can address the exact record.
type EventStore interface {
	// Put creates or fully overwrites a record.
	Put(ctx context.Context, event *model.Event) error

	// GetByID looks an event up by its partial key. ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*model.Event, error)

	// UpdateFields applies a partial atomic update of only the named fields.
	UpdateFields(ctx context.Context, id string, createdAt time.Time, fields Fields) error

	// Delete removes the record addressed by the composite key.
	Delete(ctx context.Context, id string, createdAt time.Time) error

	// QueryByStatus reads the (status, created_at) index.
	QueryByStatus(ctx context.Context, status model.Status, order Order, limit int) ([]*model.Event, error)

	// QueryByStatusAndAttemptWindow reads the sparse
	// (status, last_delivery_attempt) index. Records lacking the attribute
	// never appear, in either direction.
	QueryByStatusAndAttemptWindow(ctx context.Context, status model.Status, from, to time.Time) ([]*model.Event, error)

	// Scan reads up to limit records in no particular order. Used by the
	// metrics aggregator, which tolerates bounded, best-effort views.
	Scan(ctx context.Context, limit int) ([]*model.Event, error)
}
