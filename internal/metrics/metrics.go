// Package metrics records bot activity. The CloudWatch implementation is
// fire-and-forget: publishing failures are logged and never surface to the
// conversation.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"velobrief/internal/types"
)

// Result is the outcome dimension attached to counters.
type Result string

const (
	ResultBriefing    Result = "briefing"
	ResultReply       Result = "reply"
	ResultNotFound    Result = "not_found"
	ResultUnavailable Result = "unavailable"
	ResultSuccess     Result = "success"
	ResultFailed      Result = "failed"
)

// Recorder is the metrics surface the conversation engine depends on.
type Recorder interface {
	RecordEvent(ctx context.Context, eventType string, result Result)
	RecordForecastLookup(ctx context.Context, query string, result Result, latency time.Duration)
	RecordDeliveryFailure(ctx context.Context)
	RecordSessions(ctx context.Context, active int)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ Recorder = (*CloudWatchRecorder)(nil)

// CloudWatchRecorder publishes one datum per call.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchRecorder returns a recorder publishing to namespace. An empty
// namespace falls back to types.MetricNamespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchRecorder {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchRecorder{client: client, namespace: namespace, logger: logger}
}

// RecordEvent counts one handled chat event.
func (r *CloudWatchRecorder) RecordEvent(ctx context.Context, eventType string, result Result) {
	r.put(ctx, "event", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEventHandled),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(types.DimEventType, eventType),
			dim(types.DimOutcome, string(result)),
		},
	})
	if result == ResultBriefing {
		r.put(ctx, "briefing", cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricBriefingSent),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
		})
	}
}

// RecordForecastLookup counts a provider call and records its latency in
// milliseconds.
func (r *CloudWatchRecorder) RecordForecastLookup(ctx context.Context, query string, result Result, latency time.Duration) {
	r.put(ctx, "forecast lookup", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricForecastLookup),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(types.DimQuery, query),
			dim(types.DimOutcome, string(result)),
		},
	}, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricForecastLatency),
		Value:      aws.Float64(float64(latency.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{dim(types.DimQuery, query)},
	})
}

// RecordDeliveryFailure counts a reply the chat platform did not accept.
func (r *CloudWatchRecorder) RecordDeliveryFailure(ctx context.Context) {
	r.put(ctx, "delivery failure", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryFailed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordSessions publishes the current number of live conversations.
func (r *CloudWatchRecorder) RecordSessions(ctx context.Context, active int) {
	r.put(ctx, "sessions", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricSessionsActive),
		Value:      aws.Float64(float64(active)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (r *CloudWatchRecorder) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	}
	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		r.logger.Error("failed to record "+what+" metric", "error", err.Error())
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// Noop discards everything. Used when metrics are disabled and in tests.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) RecordEvent(context.Context, string, Result)                         {}
func (Noop) RecordForecastLookup(context.Context, string, Result, time.Duration) {}
func (Noop) RecordDeliveryFailure(context.Context)                               {}
func (Noop) RecordSessions(context.Context, int)                                 {}
