package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/log"
	"github.com/eventrelay/eventrelay/internal/model"
)

type createEventRequest struct {
	Type    string         `json:"type"`
	Source  string         `json:"source"`
	Payload map[string]any `json:"payload"`
}

type createEventResponse struct {
	ID        string       `json:"id"`
	Status    model.Status `json:"status"`
	Timestamp string       `json:"timestamp"`
}

// CreateEvent ingests a new event. Validation happens before persistence, so
// a malformed request never creates partial state.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request := createEventRequest{}

	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.JSONDecodeErrorMessage())
		return
	}

	event := model.NewEvent(h.newID(), request.Type, request.Source, request.Payload, h.now().UTC())

	err = event.Validate()
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	err = h.store.Put(ctx, event)
	if err != nil {
		log.Error(ctx, "failed to store event", err)
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))

		return
	}

	write.JSONResponse(ctx, w, http.StatusCreated, createEventResponse{
		ID:        event.ID,
		Status:    event.Status,
		Timestamp: event.CreatedAt.Format(timeFormat),
	})
}

type deleteEventResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// DeleteEvent is the compliance erasure path: unconditional and immediate
// regardless of the event's status.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	err := h.inbox.Delete(ctx, id)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, deleteEventResponse{
		ID:      id,
		Message: "Event deleted",
	})
}
