// Package otel provides OpenTelemetry integration for topicbus dispatches.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/topicbus"
)

// Observer records receiver invocation signals into OpenTelemetry: an
// invocation counter, a failure counter, an invocation duration histogram,
// and one span per invocation.
type Observer struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewObserver creates an observer bound to the provided meter and tracer.
// The tracer may be nil to record metrics only.
func NewObserver(meter metric.Meter, tracer trace.Tracer) (*Observer, error) {
	invocations, err := meter.Int64Counter(
		"topicbus.receiver.invocations",
		metric.WithDescription("Number of receiver invocations"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"topicbus.receiver.failures",
		metric.WithDescription("Number of receiver invocations that settled rejected"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"topicbus.receiver.duration",
		metric.WithDescription("Receiver invocation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Observer{
		tracer:      tracer,
		invocations: invocations,
		failures:    failures,
		duration:    duration,
	}, nil
}

// Wrap instruments a receiver. Each invocation records metrics tagged with
// topic, event, and subscription id, and runs inside its own span. Wrapping
// preserves plain-receiver semantics; ack-mode receivers should be
// instrumented before adapting to AckReceiver.
func (o *Observer) Wrap(r topicbus.Receiver) topicbus.Receiver {
	return topicbus.ReceiverFunc(func(ctx context.Context, body any, meta topicbus.Meta) (any, error) {
		attrs := metaAttributes(meta)

		var span trace.Span
		if o.tracer != nil {
			ctx, span = o.tracer.Start(ctx, "topicbus.receive",
				trace.WithAttributes(attrs...),
			)
			defer span.End()
		}

		start := time.Now()
		v, err := r.Receive(ctx, body, meta)
		elapsed := time.Since(start)

		options := metric.WithAttributes(attrs...)
		o.invocations.Add(ctx, 1, options)
		o.duration.Record(ctx, elapsed.Seconds(), options)

		if err != nil {
			o.failures.Add(ctx, 1, options)
			if span != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}

		return v, err
	})
}

func metaAttributes(meta topicbus.Meta) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if topic, ok := meta[topicbus.MetaTopic].(string); ok {
		attrs = append(attrs, attribute.String("topic", topic))
	}
	if event, ok := meta[topicbus.MetaEvent].(string); ok {
		attrs = append(attrs, attribute.String("event", event))
	}
	if subID, ok := meta[topicbus.MetaSubscriptionID].(string); ok {
		attrs = append(attrs, attribute.String("subscription_id", subID))
	}
	return attrs
}
