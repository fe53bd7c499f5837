package middleware

import (
	"net/http"
	"strings"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/auth"
	"github.com/eventrelay/eventrelay/internal/log"
)

// RequireBearer rejects requests without a valid bearer token before they
// reach the handler.
func RequireBearer(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				write.ErrorResponse(ctx, w,
					apierrors.UnauthorizedErrorMessage("missing bearer token"))

				return
			}

			_, err := issuer.Verify(token)
			if err != nil {
				log.Warn(ctx, "rejected bearer token", log.ErrorAttr(err))
				write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
