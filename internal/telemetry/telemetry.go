// Package telemetry publishes named numeric metrics with dimensional tags.
// Publishing is always best effort: failures are logged and swallowed, never
// surfaced to the caller's primary control flow.
package telemetry

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/eventrelay/eventrelay/internal/log"
)

const Namespace = "EventRelay/Dispatcher"

type Unit string

const (
	UnitCount        Unit = "Count"
	UnitMilliseconds Unit = "Milliseconds"
)

type Metric struct {
	Name       string
	Value      float64
	Unit       Unit
	Dimensions map[string]string
}

// Sink receives metric batches.
type Sink interface {
	Publish(ctx context.Context, metrics []Metric)
}

// API is the subset of the CloudWatch client the sink uses.
type API interface {
	PutMetricData(
		ctx context.Context,
		in *cloudwatch.PutMetricDataInput,
		opts ...func(*cloudwatch.Options),
	) (*cloudwatch.PutMetricDataOutput, error)
}

type CloudWatchSink struct {
	api       API
	namespace string
	now       func() time.Time
}

var _ Sink = (*CloudWatchSink)(nil)

func NewCloudWatchSink(api API, namespace string) *CloudWatchSink {
	if namespace == "" {
		namespace = Namespace
	}

	return &CloudWatchSink{api: api, namespace: namespace, now: time.Now}
}

func (s *CloudWatchSink) Publish(ctx context.Context, metrics []Metric) {
	if len(metrics) == 0 {
		return
	}

	data := make([]cwtypes.MetricDatum, 0, len(metrics))
	timestamp := s.now()

	for _, metric := range metrics {
		datum := cwtypes.MetricDatum{
			MetricName: aws.String(metric.Name),
			Value:      aws.Float64(metric.Value),
			Unit:       cwtypes.StandardUnit(metric.Unit),
			Timestamp:  aws.Time(timestamp),
		}

		for name, value := range metric.Dimensions {
			datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
				Name:  aws.String(name),
				Value: aws.String(value),
			})
		}

		data = append(data, datum)
	}

	_, err := s.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(s.namespace),
		MetricData: data,
	})
	if err != nil {
		log.Warn(ctx, "failed to publish telemetry", log.ErrorAttr(err))
	}
}

// Noop discards all metrics. Used when no sink is configured.
type Noop struct{}

var _ Sink = Noop{}

func (Noop) Publish(context.Context, []Metric) {}
