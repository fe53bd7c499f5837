// Package metrics derives delivery-health reports from stored event
// timestamps and statuses. All derivations are read-only and best effort,
// computed over a bounded scan of the store.
package metrics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/eventrelay/eventrelay/internal/model"
	"github.com/eventrelay/eventrelay/internal/store"
)

const (
	DefaultCacheTTL = 30 * time.Second
	DefaultMaxScan  = 10000

	throughputWindow = 24 * time.Hour
)

type Summary struct {
	TotalEvents int     `json:"total_events"`
	Pending     int     `json:"pending"`
	Delivered   int     `json:"delivered"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type LatencyReport struct {
	P50        float64 `json:"p50"`
	P95        float64 `json:"p95"`
	P99        float64 `json:"p99"`
	SampleSize int     `json:"sample_size"`
}

type ThroughputReport struct {
	TotalEvents24h  int     `json:"total_events_24h"`
	EventsPerHour   float64 `json:"events_per_hour"`
	EventsPerMinute float64 `json:"events_per_minute"`
	TimeRange       string  `json:"time_range"`
}

type ErrorRateReport struct {
	ErrorRate      float64 `json:"error_rate"`
	Failed         int     `json:"failed_count"`
	Delivered      int     `json:"delivered_count"`
	PendingRetries int     `json:"pending_retries"`
}

type Aggregator struct {
	store   store.EventStore
	maxScan int
	now     func() time.Time

	summary    *Cache[Summary]
	latency    *Cache[LatencyReport]
	throughput *Cache[ThroughputReport]
	errorRate  *Cache[ErrorRateReport]
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func WithMaxScan(maxScan int) Option {
	return func(a *Aggregator) {
		a.maxScan = maxScan
	}
}

func NewAggregator(eventStore store.EventStore, cacheTTL time.Duration, opts ...Option) *Aggregator {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	a := &Aggregator{
		store:   eventStore,
		maxScan: DefaultMaxScan,
		now:     time.Now,
	}

	for _, o := range opts {
		o(a)
	}

	a.summary = NewCache[Summary](cacheTTL, a.now)
	a.latency = NewCache[LatencyReport](cacheTTL, a.now)
	a.throughput = NewCache[ThroughputReport](cacheTTL, a.now)
	a.errorRate = NewCache[ErrorRateReport](cacheTTL, a.now)

	return a
}

// Invalidate drops all cached reports.
func (a *Aggregator) Invalidate() {
	a.summary.Invalidate()
	a.latency.Invalidate()
	a.throughput.Invalidate()
	a.errorRate.Invalidate()
}

func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	if cached, ok := a.summary.Get(); ok {
		return cached, nil
	}

	events, err := a.store.Scan(ctx, a.maxScan)
	if err != nil {
		return nil, err
	}

	report := &Summary{TotalEvents: len(events)}

	for _, event := range events {
		switch event.Status {
		case model.StatusPending:
			report.Pending++
		case model.StatusDelivered:
			report.Delivered++
		case model.StatusFailed:
			report.Failed++
		}
	}

	completed := report.Delivered + report.Failed
	if completed > 0 {
		report.SuccessRate = round2(float64(report.Delivered) / float64(completed) * 100)
	}

	a.summary.Set(report)

	return report, nil
}

// Latency reports percentiles over events that reached a terminal state.
// Latency is updated_at − created_at in seconds.
func (a *Aggregator) Latency(ctx context.Context) (*LatencyReport, error) {
	if cached, ok := a.latency.Get(); ok {
		return cached, nil
	}

	events, err := a.store.Scan(ctx, a.maxScan)
	if err != nil {
		return nil, err
	}

	latencies := make([]float64, 0, len(events))

	for _, event := range events {
		if !event.Status.Terminal() {
			continue
		}

		seconds := event.UpdatedAt.Sub(event.CreatedAt).Seconds()
		if seconds < 0 {
			continue
		}

		latencies = append(latencies, seconds)
	}

	sort.Float64s(latencies)

	report := &LatencyReport{SampleSize: len(latencies)}

	if len(latencies) > 0 {
		report.P50 = round2(percentile(latencies, 0.50))
		report.P95 = round2(percentile(latencies, 0.95))
		report.P99 = round2(percentile(latencies, 0.99))
	}

	a.latency.Set(report)

	return report, nil
}

func (a *Aggregator) Throughput(ctx context.Context) (*ThroughputReport, error) {
	if cached, ok := a.throughput.Get(); ok {
		return cached, nil
	}

	events, err := a.store.Scan(ctx, a.maxScan)
	if err != nil {
		return nil, err
	}

	cutoff := a.now().Add(-throughputWindow)
	count := 0

	for _, event := range events {
		if !event.CreatedAt.Before(cutoff) {
			count++
		}
	}

	report := &ThroughputReport{
		TotalEvents24h:  count,
		EventsPerHour:   round2(float64(count) / 24),
		EventsPerMinute: round2(float64(count) / 1440),
		TimeRange:       "last_24_hours",
	}

	a.throughput.Set(report)

	return report, nil
}

// ErrorRate reports the terminal failure ratio. PendingRetries is the
// current pending count, a rough proxy rather than a guarantee those events
// will actually be retried.
func (a *Aggregator) ErrorRate(ctx context.Context) (*ErrorRateReport, error) {
	if cached, ok := a.errorRate.Get(); ok {
		return cached, nil
	}

	events, err := a.store.Scan(ctx, a.maxScan)
	if err != nil {
		return nil, err
	}

	report := &ErrorRateReport{}

	for _, event := range events {
		switch event.Status {
		case model.StatusPending:
			report.PendingRetries++
		case model.StatusDelivered:
			report.Delivered++
		case model.StatusFailed:
			report.Failed++
		}
	}

	completed := report.Failed + report.Delivered
	if completed > 0 {
		report.ErrorRate = round2(float64(report.Failed) / float64(completed) * 100)
	}

	a.errorRate.Set(report)

	return report, nil
}

// percentile indexes the ascending-sorted sample at floor(n×q), clamped to
// the last element. With a single sample every percentile is that sample.
func percentile(sorted []float64, q float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
