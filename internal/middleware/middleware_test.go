package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventrelay/eventrelay/internal/auth"
	"github.com/eventrelay/eventrelay/internal/middleware"
	"github.com/eventrelay/eventrelay/internal/telemetry"
	relaycontext "github.com/eventrelay/eventrelay/utils/context"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireBearer(t *testing.T) {
	issuer := auth.NewIssuer("signing-secret", "api", "key-123")

	newRequest := func(authorization string) (*httptest.ResponseRecorder, *http.Request) {
		req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}

		return httptest.NewRecorder(), req
	}

	t.Run("valid token passes through", func(t *testing.T) {
		token, err := issuer.Exchange("api", "key-123")
		require.NoError(t, err)

		called := false
		rec, req := newRequest("Bearer " + token)
		middleware.RequireBearer(issuer)(okHandler(&called)).ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		called := false
		rec, req := newRequest("")
		middleware.RequireBearer(issuer)(okHandler(&called)).ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		called := false
		rec, req := newRequest("Basic dXNlcjpwYXNz")
		middleware.RequireBearer(issuer)(okHandler(&called)).ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		called := false
		rec, req := newRequest("Bearer not-a-jwt")
		middleware.RequireBearer(issuer)(okHandler(&called)).ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestInjectRequestID(t *testing.T) {
	var got string

	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id, err := relaycontext.GetRequestID(r.Context())
		require.NoError(t, err)
		got = id
	})

	rec := httptest.NewRecorder()
	middleware.InjectRequestID()(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, got)
}

func TestPanicRecovery(t *testing.T) {
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NotPanics(t, func() {
		middleware.PanicRecoveryMiddleware()(handler).ServeHTTP(rec, req)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInstrument(t *testing.T) {
	metrics := telemetry.NewHTTPMetrics()

	handler := middleware.Instrument(metrics, "/inbox", http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inbox/evt-1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The exporter endpoint must reflect the observation.
	exportRec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(exportRec, httptest.NewRequest(http.MethodGet, "/debug/metrics", nil))

	assert.Contains(t, exportRec.Body.String(), "eventrelay_http_requests_total")
}
