// Package dispatcher is the scheduled batch job that relays pending events
// to a configured webhook. One run: authenticate, poll the inbox, deliver
// each event concurrently with retry and backoff, record outcomes, and
// acknowledge successes.
//
// Known at-least-once gap, preserved on purpose: when delivery succeeds but
// the acknowledgment fails or the process dies first, the event stays
// pending and is redelivered on a later run. Webhook consumers must be
// idempotent; nothing here deduplicates.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventrelay/eventrelay/internal/log"
	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/secrets"
	"github.com/eventrelay/eventrelay/internal/store"
	"github.com/eventrelay/eventrelay/internal/telemetry"
)

const DefaultBatchSize = 100

// SecretSource resolves the run's operational secrets (API key, webhook URL).
type SecretSource interface {
	Get(ctx context.Context, secretID string) (*secrets.Values, error)
}

// Config for one dispatcher run.
type Config struct {
	SecretID string
	Username string
	// BatchSize bounds the per-run fan-out: there is no other concurrency
	// limit, so a large backlog must be bounded here.
	BatchSize int
}

// Report aggregates one run's outcome.
type Report struct {
	TotalEvents    int           `json:"total_events"`
	Succeeded      int           `json:"successful_deliveries"`
	Failed         int           `json:"failed_deliveries"`
	TotalRetries   int           `json:"total_retries"`
	Acknowledged   int           `json:"acknowledged_count"`
	AvgLatencyMS   float64       `json:"avg_delivery_time_ms"`
	ProcessingTime time.Duration `json:"-"`
}

type Dispatcher struct {
	config    Config
	api       APIClient
	store     store.EventStore
	secrets   SecretSource
	deliverer *Deliverer
	sink      telemetry.Sink
	now       func() time.Time
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func New(
	config Config,
	api APIClient,
	eventStore store.EventStore,
	secretSource SecretSource,
	deliverer *Deliverer,
	sink telemetry.Sink,
	opts ...Option,
) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	if sink == nil {
		sink = telemetry.Noop{}
	}

	d := &Dispatcher{
		config:    config,
		api:       api,
		store:     eventStore,
		secrets:   secretSource,
		deliverer: deliverer,
		sink:      sink,
		now:       time.Now,
	}

	for _, o := range opts {
		o(d)
	}

	return d
}

// Run executes one batch. Whole-batch setup failures (secrets, token, inbox
// fetch) abort before any per-event work, so no partial state is left
// behind; they are expected to be retried by the next scheduled invocation.
func (d *Dispatcher) Run(ctx context.Context) (*Report, error) {
	ctx = log.InjectRun(ctx, uuid.NewString())
	start := d.now()

	values, err := d.secrets.Get(ctx, d.config.SecretID)
	if err != nil {
		return nil, err
	}

	if values.WebhookURL == "" {
		return nil, fmt.Errorf("%w: webhook URL not configured", ErrConfig)
	}

	if values.APIKey == "" {
		return nil, fmt.Errorf("%w: API key not configured", ErrConfig)
	}

	token, err := d.api.Token(ctx, d.config.Username, values.APIKey)
	if err != nil {
		return nil, err
	}

	events, err := d.api.Inbox(ctx, token, d.config.BatchSize)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		log.Info(ctx, "no pending events to process")

		report := &Report{ProcessingTime: d.now().Sub(start)}
		d.publish(ctx, report)

		return report, nil
	}

	if len(events) > d.config.BatchSize {
		events = events[:d.config.BatchSize]
	}

	log.Info(ctx, "processing batch", slog.Int("events", len(events)))

	results := d.deliverAll(ctx, values.WebhookURL, events)
	d.recordAll(ctx, events, results)
	acknowledged := d.ackSuccesses(ctx, token, results)

	report := buildReport(results, acknowledged, d.now().Sub(start))
	d.publish(ctx, report)

	log.Info(ctx, "batch complete",
		slog.Int("total", report.TotalEvents),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("retries", report.TotalRetries),
		slog.Duration("elapsed", report.ProcessingTime),
	)

	return report, nil
}

// deliverAll fans out one goroutine per event and gathers every result.
// The gather never fails fast: a panic or error in one event's delivery is
// converted into a failure result for that event alone.
func (d *Dispatcher) deliverAll(ctx context.Context, webhookURL string, events []*model.Event) []Result {
	results := make([]Result, len(events))

	var wg sync.WaitGroup

	for i, event := range events {
		wg.Add(1)

		go func(i int, event *model.Event) {
			defer wg.Done()

			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{
						EventID:   event.ID,
						Attempts:  1,
						Retryable: false,
						Err:       fmt.Errorf("panic during delivery: %v", r),
					}
				}
			}()

			results[i] = d.deliverer.Deliver(log.InjectEvent(ctx, event.ID), webhookURL, event)
		}(i, event)
	}

	wg.Wait()

	return results
}

// recordAll updates tracking fields for every event in the batch. On success
// only the attempt bookkeeping is written; the delivered status is left for
// the acknowledgment protocol, keeping attempt accounting separate from
// delivery confirmation. Updates are independent per event and a failed
// update is logged, never propagated.
func (d *Dispatcher) recordAll(ctx context.Context, events []*model.Event, results []Result) {
	var wg sync.WaitGroup

	for i, event := range events {
		wg.Add(1)

		go func(event *model.Event, result Result) {
			defer wg.Done()

			now := d.now()

			fields := store.Fields{
				DeliveryAttempts:    &result.Attempts,
				LastDeliveryAttempt: &now,
			}

			if !result.Success {
				status := model.StatusFailed
				message := "unknown error"

				if result.Err != nil {
					message = result.Err.Error()
				}

				fields.Status = &status
				fields.UpdatedAt = &now
				fields.ErrorMessage = &message
			}

			err := d.store.UpdateFields(ctx, event.ID, event.CreatedAt, fields)
			if err != nil {
				log.Error(ctx, "failed to record delivery outcome", err,
					slog.String("eventId", event.ID))
			}
		}(event, results[i])
	}

	wg.Wait()
}

// ackSuccesses acknowledges each successful delivery. An acknowledgment
// failure is logged only: the event stays pending and is redelivered on the
// next run. This is the source of at-least-once delivery.
func (d *Dispatcher) ackSuccesses(ctx context.Context, token string, results []Result) int {
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		acknowledged int
	)

	for _, result := range results {
		if !result.Success {
			continue
		}

		wg.Add(1)

		go func(eventID string) {
			defer wg.Done()

			err := d.api.Ack(ctx, token, eventID)
			if err != nil {
				log.Warn(ctx, "acknowledgment failed, event will be redelivered",
					slog.String("eventId", eventID), log.ErrorAttr(err))

				return
			}

			mu.Lock()
			acknowledged++
			mu.Unlock()
		}(result.EventID)
	}

	wg.Wait()

	return acknowledged
}

func buildReport(results []Result, acknowledged int, elapsed time.Duration) *Report {
	report := &Report{
		TotalEvents:    len(results),
		Acknowledged:   acknowledged,
		ProcessingTime: elapsed,
	}

	var latencySum float64

	for _, result := range results {
		report.TotalRetries += result.Attempts - 1

		if result.Success {
			report.Succeeded++
			latencySum += result.LatencyMS
		} else {
			report.Failed++
		}
	}

	if report.Succeeded > 0 {
		report.AvgLatencyMS = latencySum / float64(report.Succeeded)
	}

	return report
}

func (d *Dispatcher) publish(ctx context.Context, report *Report) {
	d.sink.Publish(ctx, []telemetry.Metric{
		{Name: "EventsProcessed", Value: float64(report.TotalEvents), Unit: telemetry.UnitCount},
		{Name: "SuccessfulDeliveries", Value: float64(report.Succeeded), Unit: telemetry.UnitCount},
		{Name: "DeliveryFailures", Value: float64(report.Failed), Unit: telemetry.UnitCount},
		{Name: "RetryCount", Value: float64(report.TotalRetries), Unit: telemetry.UnitCount},
		{Name: "DispatcherDeliveryLatency", Value: report.AvgLatencyMS, Unit: telemetry.UnitMilliseconds},
	})
}
