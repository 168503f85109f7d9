package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/dibs-api/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the tracer provider handed to the loan service chain.
type Provider struct {
	tracer   trace.TracerProvider
	shutdown func(context.Context) error
}

// Setup builds the tracer provider described by cfg. With tracing enabled,
// spans are batched to an OTLP/HTTP collector; an empty endpoint falls back
// to the OTEL_EXPORTER_OTLP_* environment variables.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.TracingEnabled {
		logger.Debug("tracing disabled")
		return Noop(), nil
	}

	var opts []otlptracehttp.Option
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	p, err := newProvider(ctx, exporter, cfg.ServiceName)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(p.tracer)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("tracing enabled",
		slog.String("service_name", cfg.ServiceName),
		slog.Bool("endpoint_configured", cfg.OTLPEndpoint != ""))
	return p, nil
}

// Noop returns a provider that records nothing.
func Noop() *Provider {
	return &Provider{
		tracer:   noop.NewTracerProvider(),
		shutdown: func(context.Context) error { return nil },
	}
}

func newProvider(ctx context.Context, exporter sdktrace.SpanExporter, serviceName string) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return &Provider{tracer: tp, shutdown: tp.Shutdown}, nil
}

// TracerProvider returns the provider to trace with.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tracer
}

// Shutdown flushes buffered spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
