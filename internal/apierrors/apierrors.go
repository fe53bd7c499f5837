package apierrors

import (
	"errors"
	"net/http"

	"github.com/eventrelay/eventrelay/internal/auth"
	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/signature"
	"github.com/eventrelay/eventrelay/internal/store"
)

const (
	InternalServerErr   = "INTERNAL_SERVER_ERROR"
	JSONDecodeErr       = "JSON_DECODE_ERROR"
	ValidationErr       = "VALIDATION_ERROR"
	UnauthorizedErr     = "UNAUTHORIZED"
	SignatureErr        = "SIGNATURE_ERROR"
	NotFoundErr         = "NOT_FOUND"
	StoreUnavailableErr = "STORE_UNAVAILABLE"
)

type DetailedError struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Status    int     `json:"status"`
	RequestID *string `json:"requestId,omitempty"`
}

type ErrorMessage struct {
	Error DetailedError `json:"error"`
}

func InternalServerErrorMessage() ErrorMessage {
	return ErrorMessage{Error: DetailedError{
		Code:    InternalServerErr,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}}
}

func JSONDecodeErrorMessage() ErrorMessage {
	return ErrorMessage{Error: DetailedError{
		Code:    JSONDecodeErr,
		Message: "Can't decode JSON body",
		Status:  http.StatusBadRequest,
	}}
}

func ValidationErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Error: DetailedError{
		Code:    ValidationErr,
		Message: message,
		Status:  http.StatusBadRequest,
	}}
}

func UnauthorizedErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Error: DetailedError{
		Code:    UnauthorizedErr,
		Message: message,
		Status:  http.StatusUnauthorized,
	}}
}

func NotFoundErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Error: DetailedError{
		Code:    NotFoundErr,
		Message: message,
		Status:  http.StatusNotFound,
	}}
}

// TransformToAPIError maps domain sentinel errors onto caller-visible
// responses. Backend unavailability surfaces as a retryable 503; anything
// unrecognized is a generic 500 so internals never leak.
func TransformToAPIError(err error) ErrorMessage {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NotFoundErrorMessage(err.Error())
	case errors.Is(err, model.ErrEmptyType),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrMissingPayload),
		errors.Is(err, model.ErrUnknownStatus):
		return ValidationErrorMessage(err.Error())
	case errors.Is(err, auth.ErrBadCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return UnauthorizedErrorMessage(err.Error())
	case errors.Is(err, signature.ErrMissingSignature),
		errors.Is(err, signature.ErrInvalidSignature):
		return ErrorMessage{Error: DetailedError{
			Code:    SignatureErr,
			Message: err.Error(),
			Status:  http.StatusUnauthorized,
		}}
	case errors.Is(err, store.ErrStoreUnavailable):
		return ErrorMessage{Error: DetailedError{
			Code:    StoreUnavailableErr,
			Message: "event store temporarily unavailable, retry later",
			Status:  http.StatusServiceUnavailable,
		}}
	}

	return InternalServerErrorMessage()
}
