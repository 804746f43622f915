// Package telemetry wires OpenTelemetry trace export. Spans are emitted by
// the context engine and the gateway; this package owns the provider
// lifecycle.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects the OTLP endpoint for trace export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector address, host:port.
	Endpoint string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// ServiceName overrides the reported service name.
	ServiceName string
}

// Provider owns the tracer provider and flushes it on shutdown.
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger *slog.Logger
}

// Setup configures the global tracer provider with an OTLP/HTTP exporter.
// Spans created through otel.Tracer anywhere in the process are exported
// until Shutdown.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ctxweave"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("telemetry enabled", "endpoint", cfg.Endpoint, "service", serviceName)
	return &Provider{tp: tp, logger: logger}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.tp.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	p.logger.Info("telemetry stopped")
	return nil
}
