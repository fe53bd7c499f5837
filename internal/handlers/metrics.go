package handlers

import (
	"net/http"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
)

func (h *Handler) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.aggregator.Summary(ctx)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, report)
}

func (h *Handler) MetricsLatency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.aggregator.Latency(ctx)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, report)
}

func (h *Handler) MetricsThroughput(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.aggregator.Throughput(ctx)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, report)
}

func (h *Handler) MetricsErrors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.aggregator.ErrorRate(ctx)
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))
		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, report)
}
