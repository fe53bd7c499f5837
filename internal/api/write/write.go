package write

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eventrelay/eventrelay/internal/apierrors"
	"github.com/eventrelay/eventrelay/internal/log"
	relaycontext "github.com/eventrelay/eventrelay/utils/context"
)

// JSONResponse writes a JSON body with the given status.
func JSONResponse(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		log.Error(ctx, "Failed to encode response", err)
	}
}

// ErrorResponse writes an error response to the client and logs the error.
func ErrorResponse(ctx context.Context, w http.ResponseWriter, errorResponse apierrors.ErrorMessage) {
	requestID, _ := relaycontext.GetRequestID(ctx)

	errorResponse.Error.RequestID = &requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errorResponse.Error.Status)

	enc := json.NewEncoder(w)

	err := enc.Encode(&errorResponse)
	if err != nil {
		log.Error(ctx, "Failed to encode error response", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)

		return
	}
}
