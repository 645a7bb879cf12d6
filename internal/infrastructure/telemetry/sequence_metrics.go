package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/tradecore/internal/domain/sequence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrKind    = attribute.Key("sequence.kind")
	attrOutcome = attribute.Key("sequence.outcome")
	attrAttempt = attribute.Key("sequence.attempt")
	attrResult  = attribute.Key("result")
)

// SequenceMetrics records identifier allocation telemetry.
// It implements sequence.Observer.
type SequenceMetrics struct {
	attempts  metric.Int64Counter
	exhausted metric.Int64Counter
	duration  metric.Float64Histogram
	replays   metric.Int64Counter
}

// NewSequenceMetrics creates the allocation instruments on meter
func NewSequenceMetrics(meter metric.Meter) (*SequenceMetrics, error) {
	attempts, err := meter.Int64Counter("tradecore.sequence.attempts",
		metric.WithDescription("Allocation attempts by outcome"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create attempts counter: %w", err)
	}
	exhausted, err := meter.Int64Counter("tradecore.sequence.exhausted",
		metric.WithDescription("Allocations that lost every attempt to concurrent writers"),
		metric.WithUnit("{allocation}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create exhausted counter: %w", err)
	}
	duration, err := meter.Float64Histogram("tradecore.sequence.allocation.duration",
		metric.WithDescription("Wall time of an allocation including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	replays, err := meter.Int64Counter("tradecore.sequence.idempotent_replays",
		metric.WithDescription("Requests answered from an idempotency key"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create replay counter: %w", err)
	}
	return &SequenceMetrics{attempts: attempts, exhausted: exhausted, duration: duration, replays: replays}, nil
}

// AttemptFinished implements sequence.Observer
func (m *SequenceMetrics) AttemptFinished(ctx context.Context, scope sequence.Scope, attempt int, outcome sequence.Outcome) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attrKind.String(scope.Kind.String()),
		attrOutcome.String(outcome.String()),
		attrAttempt.Int(attempt),
	))
}

// Exhausted implements sequence.Observer
func (m *SequenceMetrics) Exhausted(ctx context.Context, scope sequence.Scope, _ int) {
	m.exhausted.Add(ctx, 1, metric.WithAttributes(attrKind.String(scope.Kind.String())))
}

// AllocationFinished records the duration of a whole allocation
func (m *SequenceMetrics) AllocationFinished(ctx context.Context, kind sequence.Kind, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attrKind.String(kind.String()),
		attrResult.String(result),
	))
}

// IdempotentReplay counts a request answered with a previously issued identifier
func (m *SequenceMetrics) IdempotentReplay(ctx context.Context, kind sequence.Kind) {
	m.replays.Add(ctx, 1, metric.WithAttributes(attrKind.String(kind.String())))
}
