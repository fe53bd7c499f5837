package middleware

import (
	"net/http"
	"time"

	"github.com/eventrelay/eventrelay/internal/telemetry"
)

// Instrument records request counts and latency for one route. The route
// label is the registered pattern, not the raw path, so cardinality stays
// bounded even with ids in the URL.
func Instrument(metrics *telemetry.HTTPMetrics, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		metrics.Observe(r.Method, route, lrw.statusCode, time.Since(start))
	})
}
