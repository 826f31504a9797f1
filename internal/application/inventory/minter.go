package inventory

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MintSpec describes a batch to create. The code is generated from Prefix.
type MintSpec struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Prefix      string
	Quantity    decimal.Decimal
	ImportDate  time.Time
	ExpireDate  *time.Time
	SourceType  inventory.SourceType
	SourceID    *uuid.UUID
	Note        string
}

// Minter creates batches and credits the ledger by the same quantity
type Minter struct {
	ledger *Ledger
	now    func() time.Time
}

// NewMinter creates a Minter
func NewMinter(ledger *Ledger, now func() time.Time) *Minter {
	if now == nil {
		now = time.Now
	}
	return &Minter{ledger: ledger, now: now}
}

// Mint names, stores and books a new batch. The unit must hold the pair's
// StockKey and the prefix's BatchCodeKey.
func (m *Minter) Mint(ctx context.Context, u *Unit, spec MintSpec) (*inventory.StockBatch, error) {
	if err := u.requireKey(BatchCodeKey(spec.Prefix)); err != nil {
		return nil, err
	}
	if err := u.requireKey(StockKey(spec.WarehouseID, spec.ProductID)); err != nil {
		return nil, err
	}

	batches := u.Repos().BatchRepo()
	code, err := u.sequence(spec.Prefix).Next(ctx, batches)
	if err != nil {
		return nil, err
	}

	importDate := spec.ImportDate
	if importDate.IsZero() {
		importDate = m.now()
	}
	batch, err := inventory.NewStockBatch(inventory.BatchSpec{
		WarehouseID: spec.WarehouseID,
		ProductID:   spec.ProductID,
		BatchCode:   code,
		Quantity:    spec.Quantity,
		ImportDate:  importDate,
		ExpireDate:  spec.ExpireDate,
		SourceType:  spec.SourceType,
		SourceID:    spec.SourceID,
		Note:        spec.Note,
	})
	if err != nil {
		return nil, err
	}
	if err := batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	if _, err := m.ledger.Adjust(ctx, u, spec.WarehouseID, spec.ProductID, spec.Quantity); err != nil {
		return nil, err
	}

	u.Collect(inventory.NewBatchMintedEvent(batch))
	return batch, nil
}
