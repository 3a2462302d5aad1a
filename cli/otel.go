package cli

import (
	"context"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// setupTracing wires an OTLP/HTTP trace exporter when an endpoint is given.
// It returns a shutdown func (always safe to call) and the tracer to hand to
// the dispatch observer; both are inert when the endpoint is empty.
func setupTracing(ctx context.Context, endpoint string) (func(context.Context) error, trace.Tracer, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "topicbus"),
		)),
	)
	otelapi.SetTracerProvider(tp)

	return tp.Shutdown, tp.Tracer("github.com/petal-labs/topicbus/cli"), nil
}
