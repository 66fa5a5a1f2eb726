// Package observability wires the OpenTelemetry metric pipeline with a
// Prometheus exporter and defines the composer's custom metrics.
package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider wraps the OpenTelemetry meter provider backed by a
// Prometheus registry scraped via /metrics.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// InitMeterProvider initializes metrics with a Prometheus exporter and
// installs the provider globally.
func InitMeterProvider() (*MeterProvider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return &MeterProvider{provider: provider, registry: registry}, nil
}

// Registry exposes the Prometheus registry for the /metrics handler.
func (mp *MeterProvider) Registry() *prometheus.Registry {
	return mp.registry
}

// Shutdown flushes and stops the meter provider.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp == nil || mp.provider == nil {
		return nil
	}
	return mp.provider.Shutdown(ctx)
}

// ComposerMetrics holds custom metrics for compilation operations.
type ComposerMetrics struct {
	compileDuration metric.Float64Histogram
	compileCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	suggestCounter  metric.Int64Counter
}

// InitComposerMetrics initializes composer-specific metrics.
func InitComposerMetrics() (*ComposerMetrics, error) {
	meter := otel.Meter("pgcomposer")

	compileDuration, err := meter.Float64Histogram(
		"composer.compile.duration",
		metric.WithDescription("Duration of SQL compilations in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile duration histogram: %w", err)
	}

	compileCounter, err := meter.Int64Counter(
		"composer.compile.total",
		metric.WithDescription("Total number of SQL compilations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"composer.compile.errors.total",
		metric.WithDescription("Total number of failed SQL compilations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	suggestCounter, err := meter.Int64Counter(
		"composer.joins.suggestions.total",
		metric.WithDescription("Total number of join suggestion requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion counter: %w", err)
	}

	return &ComposerMetrics{
		compileDuration: compileDuration,
		compileCounter:  compileCounter,
		errorCounter:    errorCounter,
		suggestCounter:  suggestCounter,
	}, nil
}

// RecordCompile records one compilation attempt and its duration.
func (m *ComposerMetrics) RecordCompile(ctx context.Context, mode string, durationMS float64, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.compileCounter.Add(ctx, 1, attrs)
	m.compileDuration.Record(ctx, durationMS, attrs)
	if err != nil {
		m.errorCounter.Add(ctx, 1, attrs)
	}
}

// RecordSuggestion records one join suggestion request and whether a
// proposal was produced.
func (m *ComposerMetrics) RecordSuggestion(ctx context.Context, matched bool) {
	if m == nil {
		return
	}
	m.suggestCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("matched", matched)))
}
