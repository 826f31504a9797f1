package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationLine is one (batch, amount) pair of an allocation plan
type AllocationLine struct {
	BatchID    uuid.UUID
	BatchCode  string
	ImportDate time.Time
	ExpireDate *time.Time
	Quantity   decimal.Decimal
}

// AllocationPlan is the read-only result of FIFO selection. Nothing is
// mutated until the plan is committed.
type AllocationPlan struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Requested   decimal.Decimal
	AsOf        time.Time
	Lines       []AllocationLine
}

// Total returns the sum of all planned amounts
func (p *AllocationPlan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}

// EarliestExpiry returns the tightest expiry among the planned batches, or nil
// when none of them expire.
func (p *AllocationPlan) EarliestExpiry() *time.Time {
	var earliest *time.Time
	for _, l := range p.Lines {
		if l.ExpireDate == nil {
			continue
		}
		if earliest == nil || l.ExpireDate.Before(*earliest) {
			t := *l.ExpireDate
			earliest = &t
		}
	}
	return earliest
}

// BatchIDs returns the planned batch IDs in consumption order
func (p *AllocationPlan) BatchIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Lines))
	for i, l := range p.Lines {
		ids[i] = l.BatchID
	}
	return ids
}

// SortFIFO orders batches by import date, oldest first, then by ID
func SortFIFO(batches []*StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].ImportDate.Equal(batches[j].ImportDate) {
			return batches[i].ImportDate.Before(batches[j].ImportDate)
		}
		return batches[i].ID.String() < batches[j].ID.String()
	})
}

// PlanFIFO selects batches to satisfy qty of a product at a warehouse.
// Batches that are inactive, empty, expired as of asOf, or belong to another
// pair are ignored. The input slice is not modified.
func PlanFIFO(batches []*StockBatch, warehouseID, productID uuid.UUID, qty decimal.Decimal, asOf time.Time) (*AllocationPlan, error) {
	if !qty.IsPositive() {
		return nil, shared.NewValidationError("allocation quantity must be positive, got %s", qty)
	}

	candidates := make([]*StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.WarehouseID != warehouseID || b.ProductID != productID {
			continue
		}
		if b.IsEligibleAt(asOf) {
			candidates = append(candidates, b)
		}
	}
	SortFIFO(candidates)

	plan := &AllocationPlan{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Requested:   qty,
		AsOf:        asOf,
	}
	need := qty
	for _, b := range candidates {
		if !need.IsPositive() {
			break
		}
		take := decimal.Min(b.Remaining(), need)
		plan.Lines = append(plan.Lines, AllocationLine{
			BatchID:    b.ID,
			BatchCode:  b.BatchCode,
			ImportDate: b.ImportDate,
			ExpireDate: b.ExpireDate,
			Quantity:   take,
		})
		need = need.Sub(take)
	}

	if need.IsPositive() {
		available := qty.Sub(need)
		return nil, NewInsufficientStockError(warehouseID, productID, qty, available)
	}
	return plan, nil
}

// NewInsufficientStockError builds the INSUFFICIENT_STOCK error for a pair
func NewInsufficientStockError(warehouseID, productID uuid.UUID, requested, available decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for product %s at warehouse %s: requested %s, available %s",
			productID, warehouseID, requested, available)).
		WithDetail("product_id", productID.String()).
		WithDetail("warehouse_id", warehouseID.String()).
		WithDetail("requested", requested.String()).
		WithDetail("available", available.String())
}
