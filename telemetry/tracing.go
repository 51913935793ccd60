package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type ShutdownFunc func(context.Context) error

func noShutdown(context.Context) error { return nil }

type TracingOptions struct {
	// Exporter is none, stdout or otlp
	Exporter    string
	Endpoint    string
	ServiceName string
	// Writer is where the stdout exporter writes, defaults to os.Stdout
	Writer io.Writer
}

// NewTracerProvider builds the provider handed to client.WithTracerProvider.
// Call the shutdown func to flush batched spans.
func NewTracerProvider(ctx context.Context, opts TracingOptions) (trace.TracerProvider, ShutdownFunc, error) {
	var exporter sdktrace.SpanExporter
	switch opts.Exporter {
	case "", "none":
		return noop.NewTracerProvider(), noShutdown, nil
	case "stdout":
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("error in stdouttrace.New: %w", err)
		}
		exporter = exp
	case "otlp":
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(opts.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, nil, fmt.Errorf("error in otlptracegrpc.New: %w", err)
		}
		exporter = exp
	default:
		return nil, nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", opts.ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("error in resource.Merge: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, tp.Shutdown, nil
}
