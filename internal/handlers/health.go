package handlers

import (
	"net/http"

	"github.com/eventrelay/eventrelay/internal/api/write"
)

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	write.JSONResponse(r.Context(), w, http.StatusOK, map[string]string{
		"service": "event-relay",
		"status":  "healthy",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	write.JSONResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "healthy"})
}
