package observability

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the OpenTelemetry meter and tracer providers. Metrics
// are exported through the default Prometheus registry, so they show up on
// the same /metrics endpoint as the promauto collectors.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	dispatchCounter  otelmetric.Int64Counter
	dispatchDuration otelmetric.Float64Histogram
	invocations      otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	o := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	o.meterProvider = provider

	meter := provider.Meter(serviceName)

	o.dispatchCounter, _ = meter.Int64Counter(
		"push.dispatches",
		otelmetric.WithDescription("Number of push dispatch outcomes"),
	)
	o.dispatchDuration, _ = meter.Float64Histogram(
		"push.dispatch.duration",
		otelmetric.WithDescription("Push dispatch duration"),
		otelmetric.WithUnit("ms"),
	)
	o.invocations, _ = meter.Int64Counter(
		"trigger.invocations",
		otelmetric.WithDescription("Number of trigger invocations"),
	)

	return o
}

// Tracer returns the service tracer; it is never nil.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("coachme-notifier")
	}
	return o.tracer
}

func (o *Observability) RecordDispatch(ctx context.Context, trigger, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	if o.dispatchCounter != nil {
		o.dispatchCounter.Add(ctx, 1, attrs)
	}
	if o.dispatchDuration != nil {
		o.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordInvocation(ctx context.Context, trigger string, err error) {
	if o == nil || o.invocations == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.invocations.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("result", result),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if o.meterProvider != nil {
		errs = append(errs, o.meterProvider.Shutdown(ctx))
	}
	if o.tracerProvider != nil {
		errs = append(errs, o.tracerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
