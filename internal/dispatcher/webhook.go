package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/eventrelay/eventrelay/internal/model"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 60 * time.Second
	DefaultCallTimeout    = 30 * time.Second
)

// RetryConfig shapes the per-event retry schedule: Attempts total tries,
// Delay initial backoff doubling each retry, capped at MaxDelay.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: DefaultMaxRetries,
		Delay:    DefaultInitialBackoff,
		MaxDelay: DefaultMaxBackoff,
	}
}

// Result is the outcome of delivering one event, success or not.
type Result struct {
	EventID    string
	Success    bool
	Attempts   int
	StatusCode int
	Retryable  bool
	LatencyMS  float64
	Err        error
}

// Deliverer posts events to a webhook endpoint with retry and exponential
// backoff. Backoff sleeps suspend only the calling goroutine, so concurrent
// deliveries never block one another.
type Deliverer struct {
	client *http.Client
	config RetryConfig
}

func NewDeliverer(config RetryConfig, timeout time.Duration) *Deliverer {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Deliverer{
		client: &http.Client{Timeout: timeout},
		config: config,
	}
}

// Deliver attempts delivery of a single event. Every failure mode is folded
// into the returned Result; the method never returns an error to the caller
// so one event's outcome cannot abort a sibling's processing.
func (d *Deliverer) Deliver(ctx context.Context, webhookURL string, event *model.Event) Result {
	result := Result{EventID: event.ID}

	body, err := json.Marshal(event)
	if err != nil {
		result.Err = &DeliveryError{Err: err, Retryable: false}
		return result
	}

	retrier := retry.New(
		retry.RetryIf(func(err error) bool {
			var deliveryErr *DeliveryError
			return errors.As(err, &deliveryErr) && deliveryErr.Retryable
		}),
		retry.Attempts(d.config.Attempts),
		retry.Delay(d.config.Delay),
		retry.MaxDelay(d.config.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)

	err = retrier.Do(func() error {
		result.Attempts++

		return d.attempt(ctx, webhookURL, body, &result)
	})
	if err != nil {
		var deliveryErr *DeliveryError
		if errors.As(err, &deliveryErr) {
			result.StatusCode = deliveryErr.StatusCode
			result.Retryable = deliveryErr.Retryable
		}

		result.Err = err

		return result
	}

	result.Success = true

	return result
}

func (d *Deliverer) attempt(ctx context.Context, webhookURL string, body []byte, result *Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: err, Retryable: false}
	}

	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := d.client.Do(req)
	if err != nil {
		// Timeouts and connection errors are retryable.
		return &DeliveryError{Err: err, Retryable: true}
	}

	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
		result.StatusCode = resp.StatusCode
		result.LatencyMS = float64(time.Since(start).Milliseconds())

		return nil
	case isNonRetryable(resp.StatusCode):
		return &DeliveryError{StatusCode: resp.StatusCode, Retryable: false}
	default:
		return &DeliveryError{StatusCode: resp.StatusCode, Retryable: true}
	}
}

func isSuccess(code int) bool {
	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}

	return false
}

// 4xx responses other than 429 mean the request itself is wrong; retrying
// cannot help.
func isNonRetryable(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
