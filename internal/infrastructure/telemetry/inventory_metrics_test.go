package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

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

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInventoryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewInventoryMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAllocation(ctx, "transfer")
	m.RecordAllocation(ctx, "issue")
	m.RecordAllocationFailure(ctx, "transfer")
	m.RecordBatchesMinted(ctx, "RECEIPT", 3)
	m.RecordBatchesMinted(ctx, "RECEIPT", 0)
	m.RecordImportRows(ctx, 4, 1)
	m.RecordWriteOffs(ctx, 2)
	m.RecordUnitDuration(ctx, "transfer", 15*time.Millisecond, nil)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["erp_inventory_allocations_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["erp_inventory_allocation_failures_total"]))
	assert.Equal(t, int64(3), sumOf(t, got["erp_inventory_batches_minted_total"]))
	assert.Equal(t, int64(5), sumOf(t, got["erp_inventory_import_rows_total"]))
	assert.Equal(t, int64(2), sumOf(t, got["erp_inventory_batches_written_off_total"]))
	assert.Contains(t, got, "erp_inventory_unit_duration_seconds")
}

func TestInventoryMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.InventoryMetrics
	assert.NotPanics(t, func() {
		m.RecordAllocation(context.Background(), "x")
		m.RecordUnitDuration(context.Background(), "x", time.Second, errors.New("boom"))
	})

	_, err := telemetry.NewInventoryMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestNewMeterProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled hands out no-op meters", func(t *testing.T) {
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, mp.IsEnabled())
		assert.NotNil(t, mp.Meter("test"))
		assert.NoError(t, mp.Shutdown(ctx))
	})

	t.Run("reader replaces the exporter", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			ServiceName: "warehouse-test",
			Reader:      reader,
		}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = mp.Shutdown(ctx) })
		assert.True(t, mp.IsEnabled())

		m, err := telemetry.NewInventoryMetrics(mp.Meter("test"))
		require.NoError(t, err)
		m.RecordWriteOffs(ctx, 4)

		got := collect(t, reader)
		assert.Equal(t, int64(4), sumOf(t, got["erp_inventory_batches_written_off_total"]))
	})
}
