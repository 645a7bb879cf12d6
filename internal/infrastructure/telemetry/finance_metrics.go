package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/tradecore/internal/domain/finance"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrDocumentKind = attribute.Key("document.kind")
	attrTarget       = attribute.Key("document.target_status")
	attrAllowed      = attribute.Key("allowed")
)

// FinanceMetrics records transition checks and allocations
type FinanceMetrics struct {
	checks      metric.Int64Counter
	allocations metric.Int64Counter
}

// NewFinanceMetrics creates the finance instruments on meter
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	checks, err := meter.Int64Counter("tradecore.transition.checks",
		metric.WithDescription("Status transition checks by result"),
		metric.WithUnit("{check}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create transition counter: %w", err)
	}
	allocations, err := meter.Int64Counter("tradecore.payment.allocations",
		metric.WithDescription("Payment allocations by result"),
		metric.WithUnit("{allocation}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create allocation counter: %w", err)
	}
	return &FinanceMetrics{checks: checks, allocations: allocations}, nil
}

// TransitionChecked records one transition check
func (m *FinanceMetrics) TransitionChecked(ctx context.Context, kind finance.DocumentKind, target finance.Status, allowed bool) {
	m.checks.Add(ctx, 1, metric.WithAttributes(
		attrDocumentKind.String(kind.String()),
		attrTarget.String(target.String()),
		attrAllowed.Bool(allowed),
	))
}

// PaymentAllocated records one allocation attempt
func (m *FinanceMetrics) PaymentAllocated(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.allocations.Add(ctx, 1, metric.WithAttributes(attrResult.String(result)))
}
