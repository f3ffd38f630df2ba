package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestLedgerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewLedgerMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	m.RecordPayment(ctx, tenantID, "CASH", 2, 1500.50)
	m.RecordDuesGenerated(ctx, tenantID, 6)
	m.RecordDuesGenerated(ctx, tenantID, 0)
	m.RecordAdjustments(ctx, tenantID, "LATE_FEE", 3)
	m.RecordAccountMovement(ctx, tenantID, "DEPOSIT")
	m.RecordBatch(ctx, "generate_dues", 2*time.Second, 1)

	data := collect(t, reader)

	payments, ok := data["ledger_payments_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(2), payments.DataPoints[0].Value)

	amount, ok := data["ledger_payment_amount_total"].(metricdata.Sum[float64])
	require.True(t, ok)
	assert.InDelta(t, 1500.50, amount.DataPoints[0].Value, 0.001)

	dues, ok := data["ledger_due_items_generated_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, dues.DataPoints, 1)
	assert.Equal(t, int64(6), dues.DataPoints[0].Value)

	failures, ok := data["ledger_batch_failures_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)

	_, ok = data["ledger_batch_duration_seconds"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewLedgerMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := telemetry.Config{Enabled: false, ServiceName: "campus-ledger"}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("campus-ledger"))
	assert.NoError(t, mp.Shutdown(ctx))
}
