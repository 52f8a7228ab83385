package shm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/srediag/shmbench/pkg/shm"

const (
	roleProducer = "producer"
	roleConsumer = "consumer"
)

// telemetry records one span and one set of counter increments per loop run.
// Nothing is recorded from inside the copy loops.
type telemetry struct {
	tracer    trace.Tracer
	bytes     metric.Int64Counter
	transfers metric.Int64Counter
	spins     metric.Int64Counter
}

func newTelemetry(cfg Config) *telemetry {
	meter := cfg.Meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	return &telemetry{
		tracer: tracer,
		bytes: int64Counter(meter, "shm.transfer.bytes",
			metric.WithDescription("Bytes moved through the ring."), metric.WithUnit("By")),
		transfers: int64Counter(meter, "shm.transfer.count",
			metric.WithDescription("Finished producer and consumer runs.")),
		spins: int64Counter(meter, "shm.transfer.spins",
			metric.WithDescription("Polling iterations that found no progress.")),
	}
}

func int64Counter(meter metric.Meter, name string, opts ...metric.Int64CounterOption) metric.Int64Counter {
	c, err := meter.Int64Counter(name, opts...)
	if err != nil {
		internalLogger.errorf("create counter %s: %v", name, err)
		return metricnoop.Int64Counter{}
	}
	return c
}

func (t *telemetry) start(ctx context.Context, role string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "shm."+role, trace.WithAttributes(attribute.String("shm.role", role)))
}

func (t *telemetry) end(ctx context.Context, span trace.Span, role, state string, n, spins uint64, err error) {
	attrs := metric.WithAttributes(attribute.String("shm.role", role), attribute.String("shm.state", state))
	t.bytes.Add(ctx, int64(n), attrs)
	t.transfers.Add(ctx, 1, attrs)
	t.spins.Add(ctx, int64(spins), attrs)

	span.SetAttributes(
		attribute.Int64("shm.bytes", int64(n)),
		attribute.String("shm.state", state),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
