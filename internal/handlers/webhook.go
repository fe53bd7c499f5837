package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/log"
	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/signature"
)

const (
	defaultWebhookType   = "webhook.received"
	defaultWebhookSource = "webhook"
)

type webhookResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ReceiveWebhook ingests an externally pushed payload as a new event.
// Authenticity is checked with an HMAC-SHA256 over the raw body against the
// signature header; with no signing secret configured, verification is
// disabled and unsigned payloads are accepted.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.ValidationErrorMessage("failed to read request body"))
		return
	}

	err = signature.Verify(h.webhookSecret, body, r.Header.Get(signature.Header))
	if err != nil {
		log.Warn(ctx, "webhook signature rejected", log.ErrorAttr(err))
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))

		return
	}

	payload := map[string]any{}

	err = json.Unmarshal(body, &payload)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.JSONDecodeErrorMessage())
		return
	}

	eventType := defaultWebhookType
	if v, ok := payload["type"].(string); ok && v != "" {
		eventType = v
	}

	source := defaultWebhookSource
	if v, ok := payload["source"].(string); ok && v != "" {
		source = v
	}

	event := model.NewEvent(h.newID(), eventType, source, payload, h.now().UTC())

	err = h.store.Put(ctx, event)
	if err != nil {
		log.Error(ctx, "failed to store webhook event", err)
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))

		return
	}

	write.JSONResponse(ctx, w, http.StatusCreated, webhookResponse{
		ID:     event.ID,
		Status: "received",
	})
}
