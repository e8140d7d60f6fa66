package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jbohren-forks/conditional"
)

// gateMetrics records gate decisions using OpenTelemetry.
type gateMetrics struct {
	evaluations metric.Int64Counter
	errors      metric.Int64Counter
	latency     metric.Float64Histogram
}

func newGateMetrics(meter metric.Meter) (*gateMetrics, error) {
	evaluations, err := meter.Int64Counter("conditional.gate.evaluations",
		metric.WithDescription("Number of conditions evaluated"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("conditional.gate.errors",
		metric.WithDescription("Number of conditions that failed to evaluate"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("conditional.gate.latency_ms",
		metric.WithDescription("Condition evaluation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &gateMetrics{
		evaluations: evaluations,
		errors:      errs,
		latency:     latency,
	}, nil
}

// record records one decision.
func (m *gateMetrics) record(ctx context.Context, attr string, included bool, durationMs float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("attr", attr),
		attribute.String("result", result(included, err)),
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.latency.Record(ctx, durationMs, metric.WithAttributes(attrs...))
	if err != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("attr", attr),
			attribute.String("error.kind", errorKind(err)),
		))
	}
}

func result(included bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case included:
		return "included"
	default:
		return "excluded"
	}
}

// errorKind classifies an evaluation failure for metric attributes.
func errorKind(err error) string {
	var se conditional.SyntaxError
	switch {
	case errors.As(err, &se):
		return "syntax"
	case errors.As(err, new(*conditional.TypeError)):
		return "type"
	case errors.As(err, new(*conditional.DomainError)):
		return "domain"
	case errors.As(err, new(*conditional.OverflowError)):
		return "overflow"
	case errors.As(err, new(*NotBoolError)):
		return "not_bool"
	default:
		return "other"
	}
}

// startSpan starts the span for one decision.
func (g *Gate) startSpan(ctx context.Context, attr, src string) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "conditional.gate",
		trace.WithAttributes(
			attribute.String("condition.attr", attr),
			attribute.String("condition.expr", src),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// endSpan completes a decision span, recording the result or the error.
func endSpan(span trace.Span, included bool, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("condition.included", included))
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// logDecision logs a successful decision.
func logDecision(logger *slog.Logger, attr, src string, included bool) {
	if logger == nil {
		return
	}
	logger.Debug("condition evaluated",
		slog.String("attr", attr),
		slog.String("expr", src),
		slog.Bool("included", included),
	)
}

// logConditionError logs a failed decision. Failures that exclude the element
// are warnings; failures returned to the caller are errors.
func logConditionError(ctx context.Context, logger *slog.Logger, attr, src string, policy Policy, err error) {
	if logger == nil {
		return
	}
	level := slog.LevelError
	if policy == Exclude {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "condition failed",
		slog.String("attr", attr),
		slog.String("expr", src),
		slog.String("policy", policy.String()),
		slog.String("error", err.Error()),
	)
}

// timedOperation measures the duration of an operation. The returned function
// gives the elapsed time in milliseconds.
func timedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
