package handlers

import (
	"net/http"

	"github.com/eventrelay/eventrelay/internal/api/write"
	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/log"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token exchanges a username and API key for a short-lived bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := r.ParseForm()
	if err != nil {
		write.ErrorResponse(ctx, w, apierrors.ValidationErrorMessage("malformed form body"))
		return
	}

	username := r.PostFormValue("username")
	apiKey := r.PostFormValue("password")

	token, err := h.issuer.Exchange(username, apiKey)
	if err != nil {
		log.Warn(ctx, "credential exchange rejected", log.ErrorAttr(err))
		write.ErrorResponse(ctx, w, apierrors.TransformToAPIError(err))

		return
	}

	write.JSONResponse(ctx, w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.issuer.TTL().Seconds()),
	})
}
