package inventory

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchFilter narrows batch listings
type BatchFilter struct {
	shared.Filter
	WarehouseID  *uuid.UUID
	ProductID    *uuid.UUID
	Status       BatchStatus
	CodePrefix   string
	IncludeEmpty bool
}

// RecordFilter narrows ledger listings
type RecordFilter struct {
	shared.Filter
	WarehouseID *uuid.UUID
	ProductID   *uuid.UUID
	NonZeroOnly bool
}

// PairQuantity is a quantity summed for one (warehouse, product) pair
type PairQuantity struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
}

// StockBatchRepository persists lots. The ForUpdate variants must be called
// inside a transaction and lock the returned rows until it ends.
type StockBatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockBatch, error)
	FindByCode(ctx context.Context, code string) (*StockBatch, error)
	List(ctx context.Context, filter BatchFilter) ([]*StockBatch, int64, error)

	// FindAvailableForUpdate returns the active batches of a pair that still
	// have stock, oldest first, locking them.
	FindAvailableForUpdate(ctx context.Context, warehouseID, productID uuid.UUID) ([]*StockBatch, error)

	// FindExpiredForUpdate returns up to limit active batches with stock left
	// whose expiry is on or before asOf, locking them.
	FindExpiredForUpdate(ctx context.Context, asOf time.Time, limit int) ([]*StockBatch, error)

	ExistsByCode(ctx context.Context, code string) (bool, error)

	// MaxCodeSuffix returns the largest numeric suffix among codes that are
	// prefix followed only by digits, or 0 when there are none.
	MaxCodeSuffix(ctx context.Context, prefix string) (int, error)

	Create(ctx context.Context, batch *StockBatch) error

	// SaveConsumption writes quantity_out, status and updated_at of each batch
	SaveConsumption(ctx context.Context, batches []*StockBatch) error

	// SumRemaining totals active remaining stock per pair
	SumRemaining(ctx context.Context, warehouseID *uuid.UUID) ([]PairQuantity, error)
}

// InventoryRecordRepository persists ledger records
type InventoryRecordRepository interface {
	FindByKey(ctx context.Context, warehouseID, productID uuid.UUID) (*InventoryRecord, error)
	FindByKeyForUpdate(ctx context.Context, warehouseID, productID uuid.UUID) (*InventoryRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]*InventoryRecord, int64, error)
	Create(ctx context.Context, rec *InventoryRecord) error

	// Save persists an adjusted record. It fails with CONCURRENCY_CONFLICT
	// when the stored version is not the one the record was loaded at.
	Save(ctx context.Context, rec *InventoryRecord) error
}

// StockTransactionRepository persists transaction headers and their movements
type StockTransactionRepository interface {
	Create(ctx context.Context, tx *StockTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockTransaction, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
