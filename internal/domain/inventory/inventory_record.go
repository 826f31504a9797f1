package inventory

import (
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeInventoryRecord is the aggregate type name used in events
const AggregateTypeInventoryRecord = "InventoryRecord"

// InventoryRecord is the ledger line for one (warehouse, product) pair.
// Quantity always equals the remaining stock of the pair's active batches.
type InventoryRecord struct {
	shared.BaseAggregateRoot
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	LastUpdated time.Time
}

// OpenInventoryRecord creates the record for a pair on its first inbound movement
func OpenInventoryRecord(warehouseID, productID uuid.UUID, delta decimal.Decimal, now time.Time) (*InventoryRecord, error) {
	if warehouseID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.NewValidationError("warehouse id and product id are required")
	}
	if !delta.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidOperation,
			fmt.Sprintf("no inventory record for warehouse %s product %s, cannot apply %s", warehouseID, productID, delta))
	}

	rec := &InventoryRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		WarehouseID:       warehouseID,
		ProductID:         productID,
		Quantity:          delta,
		LastUpdated:       now,
	}
	rec.AddDomainEvent(NewInventoryAdjustedEvent(rec, delta))
	return rec, nil
}

// Adjust applies delta and returns the new quantity. A result below zero is
// rejected and leaves the record untouched.
func (r *InventoryRecord) Adjust(delta decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	next := r.Quantity.Add(delta)
	if next.IsNegative() {
		return r.Quantity, shared.NewDomainError(shared.CodeNegativeInventory,
			fmt.Sprintf("adjusting warehouse %s product %s by %s would leave %s", r.WarehouseID, r.ProductID, delta, next)).
			WithDetail("product_id", r.ProductID.String()).
			WithDetail("warehouse_id", r.WarehouseID.String())
	}

	r.Quantity = next
	r.LastUpdated = now
	r.Touch(now)
	r.IncrementVersion()
	if !delta.IsZero() {
		r.AddDomainEvent(NewInventoryAdjustedEvent(r, delta))
	}
	return next, nil
}

// Covers reports whether the record holds at least qty
func (r *InventoryRecord) Covers(qty decimal.Decimal) bool {
	return r.Quantity.GreaterThanOrEqual(qty)
}
