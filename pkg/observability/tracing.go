// Package observability provides OpenTelemetry tracing for spawnpool's
// lifecycle operations: host start and stop, scene load and unload.
// Acquire and release are not traced; pkg/metrics counts them.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/spawnpool/pkg/config"
)

// Tracer owns a tracer provider and starts spans for lifecycle operations.
// A disabled Tracer uses a no-op provider, so callers never branch on it.
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewTracer builds a Tracer from configuration. Spans are written to out
// (os.Stdout when nil) by the stdout exporter.
func NewTracer(cfg config.TracingConfig, out io.Writer) (*Tracer, error) {
	if !cfg.Enabled || cfg.Exporter == "none" {
		return NoopTracer(), nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "spawnpool"
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if out == nil {
		out = os.Stdout
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "", "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
	)
	return NewTracerWithProvider(tp, serviceName, tp.Shutdown), nil
}

// NewTracerWithProvider wraps an existing provider. shutdown may be nil.
func NewTracerWithProvider(tp trace.TracerProvider, name string, shutdown func(context.Context) error) *Tracer {
	if shutdown == nil {
		shutdown = func(context.Context) error { return nil }
	}
	return &Tracer{
		tracer:   tp.Tracer(name),
		shutdown: shutdown,
	}
}

// NoopTracer returns a Tracer that records nothing
func NoopTracer() *Tracer {
	return NewTracerWithProvider(noop.NewTracerProvider(), "spawnpool", nil)
}

// Trace runs fn inside a span named operation. The span's status reflects
// fn's error.
//
// Example:
//
//	err := tracer.Trace(ctx, "scene.load", func(ctx context.Context) error {
//	    return manager.build(ctx, name)
//	}, attribute.String("scene", name))
func (t *Tracer) Trace(ctx context.Context, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// AddEvent attaches an event to the span in ctx, if any
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans and releases the provider
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}
