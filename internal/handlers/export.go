package handlers

import (
	"encoding/csv"
	"net/http"
	"sort"
	"strconv"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/log"
	"github.com/eventrelay/eventrelay/internal/model"
)

const exportScanLimit = 1000

var exportHeader = []string{
	"id", "type", "source", "status", "created_at", "updated_at",
	"delivery_attempts", "last_delivery_attempt", "delivery_latency_ms", "error_message",
}

// Export dumps stored events as CSV or JSON, optionally filtered by status.
// The scan is bounded; this is an operator convenience, not a replication
// mechanism.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	if format != "json" && format != "csv" {
		write.ErrorResponse(ctx, w, apierrors.ValidationErrorMessage("format must be json or csv"))
		return
	}

	statusFilter := model.Status(r.URL.Query().Get("status"))
	if statusFilter != "" {
		if err := statusFilter.Validate(); err != nil {
			write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
			return
		}
	}

	events, err := h.store.Scan(ctx, exportScanLimit)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	filtered := make([]*model.Event, 0, len(events))

	for _, event := range events {
		if statusFilter != "" && event.Status != statusFilter {
			continue
		}

		filtered = append(filtered, event)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if format == "json" {
		write.JSONResponse(ctx, w, http.StatusOK, filtered)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="events.csv"`)

	writer := csv.NewWriter(w)

	err = writer.Write(exportHeader)
	if err != nil {
		log.Error(ctx, "failed to write export", err)
		return
	}

	for _, event := range filtered {
		lastAttempt := ""
		if event.LastDeliveryAttempt != nil {
			lastAttempt = event.LastDeliveryAttempt.Format(timeFormat)
		}

		latency := ""
		if event.DeliveryLatencyMS != nil {
			latency = strconv.FormatInt(*event.DeliveryLatencyMS, 10)
		}

		err = writer.Write([]string{
			event.ID,
			event.Type,
			event.Source,
			string(event.Status),
			event.CreatedAt.Format(timeFormat),
			event.UpdatedAt.Format(timeFormat),
			strconv.Itoa(event.DeliveryAttempts),
			lastAttempt,
			latency,
			event.ErrorMessage,
		})
		if err != nil {
			log.Error(ctx, "failed to write export row", err)
			return
		}
	}

	writer.Flush()
}
