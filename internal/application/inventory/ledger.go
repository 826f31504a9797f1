package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger applies signed adjustments to InventoryRecords
type Ledger struct {
	now func() time.Time
}

// NewLedger creates a Ledger
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Adjust adds delta to the record of (warehouseID, productID), creating the
// record on the first positive movement, and returns the updated record.
// The unit must hold the pair's StockKey.
func (l *Ledger) Adjust(ctx context.Context, u *Unit, warehouseID, productID uuid.UUID, delta decimal.Decimal) (*inventory.InventoryRecord, error) {
	if err := u.requireKey(StockKey(warehouseID, productID)); err != nil {
		return nil, err
	}
	records := u.Repos().RecordRepo()
	now := l.now()

	rec, err := records.FindByKeyForUpdate(ctx, warehouseID, productID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		rec, err = inventory.OpenInventoryRecord(warehouseID, productID, delta, now)
		if err != nil {
			return nil, err
		}
		if err := records.Create(ctx, rec); err != nil {
			return nil, err
		}
		u.CollectFrom(rec)
		return rec, nil
	}

	if _, err := rec.Adjust(delta, now); err != nil {
		return nil, err
	}
	if err := records.Save(ctx, rec); err != nil {
		return nil, err
	}
	u.CollectFrom(rec)
	return rec, nil
}

// Quantity returns the ledger quantity of a pair, zero when no record exists
func (l *Ledger) Quantity(ctx context.Context, u *Unit, warehouseID, productID uuid.UUID) (decimal.Decimal, error) {
	rec, err := u.Repos().RecordRepo().FindByKeyForUpdate(ctx, warehouseID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return rec.Quantity, nil
}
