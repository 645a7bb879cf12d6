package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestProvider(t *testing.T) (*telemetry.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, nil, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumWhere(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter())
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestSequenceMetrics(t *testing.T) {
	mp, reader := newTestProvider(t)
	m, err := telemetry.NewSequenceMetrics(mp.Meter())
	require.NoError(t, err)

	ctx := context.Background()
	scope := sequence.NewScope(uuid.New(), sequence.KindProductSKU, "PRD")

	m.AttemptFinished(ctx, scope, 1, sequence.OutcomeRetryableConflict)
	m.AttemptFinished(ctx, scope, 2, sequence.OutcomeRetryableConflict)
	m.AttemptFinished(ctx, scope, 3, sequence.OutcomeSuccess)
	m.Exhausted(ctx, scope, 3)
	m.AllocationFinished(ctx, sequence.KindProductSKU, 12*time.Millisecond, nil)
	m.AllocationFinished(ctx, sequence.KindProductSKU, 40*time.Millisecond, errors.New("boom"))
	m.IdempotentReplay(ctx, sequence.KindPayment)

	metrics := collect(t, reader)

	attempts := metrics["tradecore.sequence.attempts"]
	assert.Equal(t, int64(2), sumWhere(t, attempts, "sequence.outcome", "conflict"))
	assert.Equal(t, int64(1), sumWhere(t, attempts, "sequence.outcome", "success"))
	assert.Equal(t, int64(1), sumWhere(t, metrics["tradecore.sequence.exhausted"], "sequence.kind", "PRODUCT_SKU"))
	assert.Equal(t, int64(1), sumWhere(t, metrics["tradecore.sequence.idempotent_replays"], "sequence.kind", "PAYMENT"))

	hist, ok := metrics["tradecore.sequence.allocation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestSequenceMetrics_AsAllocatorObserver(t *testing.T) {
	mp, _ := newTestProvider(t)
	m, err := telemetry.NewSequenceMetrics(mp.Meter())
	require.NoError(t, err)

	var observer sequence.Observer = m
	assert.NotNil(t, observer)
}

func TestFinanceMetrics(t *testing.T) {
	mp, reader := newTestProvider(t)
	m, err := telemetry.NewFinanceMetrics(mp.Meter())
	require.NoError(t, err)

	ctx := context.Background()
	m.TransitionChecked(ctx, finance.DocumentPurchaseOrder, finance.StatusShipped, false)
	m.TransitionChecked(ctx, finance.DocumentPurchaseOrder, finance.StatusShipped, true)
	m.PaymentAllocated(ctx, nil)
	m.PaymentAllocated(ctx, errors.New("over"))

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, metrics["tradecore.transition.checks"], "document.kind", "PURCHASE_ORDER"))
	assert.Equal(t, int64(1), sumWhere(t, metrics["tradecore.payment.allocations"], "result", "rejected"))
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: false}, logger))
	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, logger))
	assert.NoError(t, db.Exec("SELECT 1").Error)
}
