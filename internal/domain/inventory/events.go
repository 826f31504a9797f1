package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type names for events raised outside InventoryRecord
const (
	AggregateTypeStockBatch       = "StockBatch"
	AggregateTypeStockTransaction = "StockTransaction"
)

// Event type constants
const (
	EventTypeInventoryAdjusted = "InventoryAdjusted"
	EventTypeBatchMinted       = "BatchMinted"
	EventTypeStockAllocated    = "StockAllocated"
	EventTypeStockTransferred  = "StockTransferred"
	EventTypeBatchWrittenOff   = "BatchWrittenOff"
)

// InventoryAdjustedEvent is raised whenever a ledger quantity changes
type InventoryAdjustedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Delta       decimal.Decimal `json:"delta"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewInventoryAdjustedEvent creates a new InventoryAdjustedEvent
func NewInventoryAdjustedEvent(rec *InventoryRecord, delta decimal.Decimal) *InventoryAdjustedEvent {
	return &InventoryAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryAdjusted, AggregateTypeInventoryRecord, rec.ID, rec.LastUpdated),
		WarehouseID:     rec.WarehouseID,
		ProductID:       rec.ProductID,
		Delta:           delta,
		Quantity:        rec.Quantity,
	}
}

// BatchMintedEvent is raised when a new lot enters a warehouse
type BatchMintedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	BatchCode   string          `json:"batch_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExpireDate  *time.Time      `json:"expire_date,omitempty"`
	SourceType  SourceType      `json:"source_type"`
}

// NewBatchMintedEvent creates a new BatchMintedEvent
func NewBatchMintedEvent(b *StockBatch) *BatchMintedEvent {
	return &BatchMintedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchMinted, AggregateTypeStockBatch, b.ID, b.CreatedAt),
		WarehouseID:     b.WarehouseID,
		ProductID:       b.ProductID,
		BatchCode:       b.BatchCode,
		Quantity:        b.QuantityIn,
		ExpireDate:      b.ExpireDate,
		SourceType:      b.SourceType,
	}
}

// StockAllocatedEvent is raised when a FIFO plan is committed
type StockAllocatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID        `json:"warehouse_id"`
	ProductID   uuid.UUID        `json:"product_id"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Lines       []AllocationLine `json:"lines"`
}

// NewStockAllocatedEvent creates a new StockAllocatedEvent keyed on the transaction
func NewStockAllocatedEvent(tx *StockTransaction, plan *AllocationPlan) *StockAllocatedEvent {
	return &StockAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAllocated, AggregateTypeStockTransaction, tx.ID, tx.CreatedAt),
		WarehouseID:     plan.WarehouseID,
		ProductID:       plan.ProductID,
		Quantity:        plan.Total(),
		Lines:           plan.Lines,
	}
}

// StockTransferredEvent is raised once per committed transfer
type StockTransferredEvent struct {
	shared.BaseDomainEvent
	SourceWarehouseID uuid.UUID       `json:"source_warehouse_id"`
	DestWarehouseID   uuid.UUID       `json:"dest_warehouse_id"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	TotalWeight       decimal.Decimal `json:"total_weight"`
}

// NewStockTransferredEvent creates a new StockTransferredEvent
func NewStockTransferredEvent(tx *StockTransaction, source, dest uuid.UUID) *StockTransferredEvent {
	return &StockTransferredEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockTransferred, AggregateTypeStockTransaction, tx.ID, tx.CreatedAt),
		SourceWarehouseID: source,
		DestWarehouseID:   dest,
		TotalQuantity:     tx.TotalQuantity,
		TotalWeight:       tx.TotalWeight,
	}
}

// BatchWrittenOffEvent is raised when an expired lot is retired
type BatchWrittenOffEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	BatchCode   string          `json:"batch_code"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewBatchWrittenOffEvent creates a new BatchWrittenOffEvent
func NewBatchWrittenOffEvent(b *StockBatch, qty decimal.Decimal) *BatchWrittenOffEvent {
	return &BatchWrittenOffEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchWrittenOff, AggregateTypeStockBatch, b.ID, b.UpdatedAt),
		WarehouseID:     b.WarehouseID,
		ProductID:       b.ProductID,
		BatchCode:       b.BatchCode,
		Quantity:        qty,
	}
}
