package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrOperation = attribute.Key("operation")
	AttrOutcome   = attribute.Key("outcome")
	AttrSource    = attribute.Key("source")
)

// ErrMeterNil is returned when a nil meter is passed to NewInventoryMetrics
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// InventoryMetrics records counters for the stock engine. A nil
// *InventoryMetrics is valid and records nothing, so services can hold one
// unconditionally.
type InventoryMetrics struct {
	allocations    *Counter
	allocFailures  *Counter
	batchesMinted  *Counter
	importRows     *Counter
	writeOffs      *Counter
	unitOfWorkTime *Histogram
}

// NewInventoryMetrics registers the inventory instruments on meter
func NewInventoryMetrics(meter metric.Meter) (*InventoryMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &InventoryMetrics{}
	var err error
	if m.allocations, err = NewCounter(meter, "erp_inventory_allocations_total",
		"FIFO allocations committed", "{allocations}"); err != nil {
		return nil, err
	}
	if m.allocFailures, err = NewCounter(meter, "erp_inventory_allocation_failures_total",
		"Allocations rejected for insufficient stock", "{allocations}"); err != nil {
		return nil, err
	}
	if m.batchesMinted, err = NewCounter(meter, "erp_inventory_batches_minted_total",
		"Stock batches created", "{batches}"); err != nil {
		return nil, err
	}
	if m.importRows, err = NewCounter(meter, "erp_inventory_import_rows_total",
		"Receipt import rows processed", "{rows}"); err != nil {
		return nil, err
	}
	if m.writeOffs, err = NewCounter(meter, "erp_inventory_batches_written_off_total",
		"Expired batches written off", "{batches}"); err != nil {
		return nil, err
	}
	if m.unitOfWorkTime, err = NewHistogram(meter, "erp_inventory_unit_duration_seconds",
		"Duration of a locked stock unit of work", "s",
		[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAllocation counts a committed allocation
func (m *InventoryMetrics) RecordAllocation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.allocations.Inc(ctx, AttrOperation.String(operation))
}

// RecordAllocationFailure counts an allocation rejected for lack of stock
func (m *InventoryMetrics) RecordAllocationFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.allocFailures.Inc(ctx, AttrOperation.String(operation))
}

// RecordBatchesMinted counts minted batches by source
func (m *InventoryMetrics) RecordBatchesMinted(ctx context.Context, source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.batchesMinted.Add(ctx, int64(n), AttrSource.String(source))
}

// RecordImportRows counts processed import rows by outcome
func (m *InventoryMetrics) RecordImportRows(ctx context.Context, succeeded, failed int) {
	if m == nil {
		return
	}
	if succeeded > 0 {
		m.importRows.Add(ctx, int64(succeeded), AttrOutcome.String("success"))
	}
	if failed > 0 {
		m.importRows.Add(ctx, int64(failed), AttrOutcome.String("failed"))
	}
}

// RecordWriteOffs counts expired batches written off
func (m *InventoryMetrics) RecordWriteOffs(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.writeOffs.Add(ctx, int64(n))
}

// RecordUnitDuration records how long a unit of work held its locks
func (m *InventoryMetrics) RecordUnitDuration(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.unitOfWorkTime.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}
