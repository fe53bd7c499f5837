package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a missing required secret or URL. Fatal for the run,
	// never retried within it.
	ErrConfig = errors.New("dispatcher configuration error")

	ErrAuthFailed  = errors.New("failed to authenticate with the relay API")
	ErrInboxFetch  = errors.New("failed to fetch inbox")
	ErrAckRejected = errors.New("acknowledgment rejected")
)

// DeliveryError classifies one webhook delivery attempt. Retryable drives
// the retry decision: 5xx, 429, timeouts and connection errors may be
// retried; any other 4xx stops immediately.
type DeliveryError struct {
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}

	return fmt.Sprintf("delivery failed: HTTP %d", e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
