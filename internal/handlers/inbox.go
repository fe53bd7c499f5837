package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/model"
)

const timeFormat = time.RFC3339

// inboxEvent is the polling consumer's view of an event: the full payload
// plus delivery bookkeeping, without the retention attribute.
type inboxEvent struct {
	ID                  string         `json:"id"`
	Type                string         `json:"type"`
	Source              string         `json:"source"`
	Payload             map[string]any `json:"payload"`
	Status              model.Status   `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeliveryAttempts    int            `json:"delivery_attempts"`
	LastDeliveryAttempt *time.Time     `json:"last_delivery_attempt,omitempty"`
	DeliveryLatencyMS   *int64         `json:"delivery_latency_ms,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty"`
}

// Inbox lists pending events in reverse-creation order. Polling is
// non-destructive: events stay pending until explicitly acknowledged.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			write.ErrorResponse(ctx, w, apierrors.ValidationErrorMessage("limit must be an integer"))
			return
		}

		limit = parsed
	}

	events, err := h.inbox.ListPending(ctx, limit)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	response := make([]inboxEvent, 0, len(events))

	for _, event := range events {
		response = append(response, inboxEvent{
			ID:                  event.ID,
			Type:                event.Type,
			Source:              event.Source,
			Payload:             event.Payload,
			Status:              event.Status,
			CreatedAt:           event.CreatedAt,
			UpdatedAt:           event.UpdatedAt,
			DeliveryAttempts:    event.DeliveryAttempts,
			LastDeliveryAttempt: event.LastDeliveryAttempt,
			DeliveryLatencyMS:   event.DeliveryLatencyMS,
			ErrorMessage:        event.ErrorMessage,
		})
	}

	write.JSONResponse(ctx, w, http.StatusOK, response)
}

// Acknowledge marks a pending event terminally delivered. 404 when the id is
// unknown (already deleted, or never existed).
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	receipt, err := h.inbox.Acknowledge(ctx, id)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, receipt)
}
