package daemon

import (
	"net/http"

	"github.com/eventrelay/eventrelay/internal/auth"
	"github.com/eventrelay/eventrelay/internal/handlers"
	"github.com/eventrelay/eventrelay/internal/middleware"
	"github.com/eventrelay/eventrelay/internal/telemetry"
)

func newMux(h *handlers.Handler, issuer *auth.Issuer, httpMetrics *telemetry.HTTPMetrics) http.Handler {
	bearer := middleware.RequireBearer(issuer)

	register := func(mux *http.ServeMux, pattern, route string, handler http.HandlerFunc, protected bool) {
		var next http.Handler = handler
		if protected {
			next = bearer(next)
		}

		mux.Handle(pattern, middleware.Instrument(httpMetrics, route, next))
	}

	mux := http.NewServeMux()

	register(mux, "GET /{$}", "/", h.Root, false)
	register(mux, "GET /healthz", "/healthz", h.Health, false)
	register(mux, "POST /token", "/token", h.Token, false)
	register(mux, "POST /webhook", "/webhook", h.ReceiveWebhook, false)

	register(mux, "POST /events", "/events", h.CreateEvent, true)
	register(mux, "DELETE /events/{id}", "/events/{id}", h.DeleteEvent, true)
	register(mux, "GET /events/export", "/events/export", h.Export, true)
	register(mux, "GET /inbox", "/inbox", h.Inbox, true)
	register(mux, "POST /inbox/{id}/ack", "/inbox/{id}/ack", h.Acknowledge, true)
	register(mux, "GET /metrics/summary", "/metrics/summary", h.MetricsSummary, true)
	register(mux, "GET /metrics/latency", "/metrics/latency", h.MetricsLatency, true)
	register(mux, "GET /metrics/throughput", "/metrics/throughput", h.MetricsThroughput, true)
	register(mux, "GET /metrics/errors", "/metrics/errors", h.MetricsErrors, true)

	mux.Handle("GET /debug/metrics", httpMetrics.Handler())

	// Outer middleware run first-in-first-out on the way in.
	middlewares := []func(http.Handler) http.Handler{
		middleware.InjectRequestID(),
		middleware.LoggingMiddleware(),
		middleware.PanicRecoveryMiddleware(),
	}

	var handler http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	return handler
}
