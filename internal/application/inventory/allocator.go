package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Demand is a quantity of one product wanted from one warehouse
type Demand struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
}

// PendingAllocation is a FIFO plan together with the locked batches it was
// computed from. Commit applies it.
type PendingAllocation struct {
	Plan    *inventory.AllocationPlan
	batches map[uuid.UUID]*inventory.StockBatch
}

// Allocator selects and debits batches in FIFO order. Selection is read-only;
// nothing is written until Commit.
type Allocator struct {
	now func() time.Time
}

// NewAllocator creates an Allocator
func NewAllocator(now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{now: now}
}

// Plan locks the pair's available batches and computes a FIFO plan for qty as
// of asOf. It fails with INSUFFICIENT_STOCK without touching anything.
func (a *Allocator) Plan(ctx context.Context, u *Unit, d Demand, asOf time.Time) (*PendingAllocation, error) {
	if !d.Quantity.IsPositive() {
		return nil, shared.NewValidationError("allocation quantity must be positive, got %s", d.Quantity)
	}

	if err := u.requireKey(StockKey(d.WarehouseID, d.ProductID)); err != nil {
		return nil, err
	}

	batches, err := u.Repos().BatchRepo().FindAvailableForUpdate(ctx, d.WarehouseID, d.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	plan, err := inventory.PlanFIFO(batches, d.WarehouseID, d.ProductID, d.Quantity, asOf)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*inventory.StockBatch, len(plan.Lines))
	for _, b := range batches {
		byID[b.ID] = b
	}
	return &PendingAllocation{Plan: plan, batches: byID}, nil
}

// PlanAll plans every demand before anything is committed. Demands on the
// same pair are merged so they cannot both count the same units.
func (a *Allocator) PlanAll(ctx context.Context, u *Unit, demands []Demand, asOf time.Time) ([]*PendingAllocation, error) {
	merged := MergeDemands(demands)
	pending := make([]*PendingAllocation, 0, len(merged))
	for _, d := range merged {
		p, err := a.Plan(ctx, u, d, asOf)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, nil
}

// Commit debits every planned batch in one pass and persists the result.
func (a *Allocator) Commit(ctx context.Context, u *Unit, p *PendingAllocation) error {
	now := a.now()
	touched := make([]*inventory.StockBatch, 0, len(p.Plan.Lines))
	for _, line := range p.Plan.Lines {
		b, ok := p.batches[line.BatchID]
		if !ok {
			return fmt.Errorf("planned batch %s was not loaded", line.BatchID)
		}
		if err := b.Consume(line.Quantity, now); err != nil {
			return err
		}
		touched = append(touched, b)
	}
	return u.Repos().BatchRepo().SaveConsumption(ctx, touched)
}

// Allocate plans and commits a single demand
func (a *Allocator) Allocate(ctx context.Context, u *Unit, d Demand, asOf time.Time) (*inventory.AllocationPlan, error) {
	p, err := a.Plan(ctx, u, d, asOf)
	if err != nil {
		return nil, err
	}
	if err := a.Commit(ctx, u, p); err != nil {
		return nil, err
	}
	return p.Plan, nil
}

// MergeDemands sums demands per (warehouse, product), keeping first-seen order
func MergeDemands(demands []Demand) []Demand {
	type pair struct{ w, p uuid.UUID }
	index := make(map[pair]int, len(demands))
	out := make([]Demand, 0, len(demands))
	for _, d := range demands {
		k := pair{d.WarehouseID, d.ProductID}
		if i, ok := index[k]; ok {
			out[i].Quantity = out[i].Quantity.Add(d.Quantity)
			continue
		}
		index[k] = len(out)
		out = append(out, d)
	}
	return out
}
