package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBatchModel is the persistence model for stock batches (lots)
type StockBatchModel struct {
	BaseModel
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_batches_pair_fifo,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_batches_pair_fifo,priority:2"`
	BatchCode   string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_batches_batch_code"`
	QuantityIn  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityOut decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0;check:chk_stock_batches_quantity_out,quantity_out >= 0 AND quantity_out <= quantity_in"`
	ImportDate  time.Time       `gorm:"not null;index:idx_stock_batches_pair_fifo,priority:3"`
	ExpireDate  *time.Time      `gorm:"index"`
	Status      string          `gorm:"type:varchar(20);not null;default:'ACTIVE';check:chk_stock_batches_status,status IN ('ACTIVE','INACTIVE')"`
	SourceType  string          `gorm:"type:varchar(20);not null;default:'NONE'"`
	SourceID    *uuid.UUID      `gorm:"type:uuid;index"`
	Note        string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StockBatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain StockBatch
func (m *StockBatchModel) ToDomain() *inventory.StockBatch {
	return &inventory.StockBatch{
		BaseEntity:  m.BaseModel.ToDomain(),
		WarehouseID: m.WarehouseID,
		ProductID:   m.ProductID,
		BatchCode:   m.BatchCode,
		QuantityIn:  m.QuantityIn,
		QuantityOut: m.QuantityOut,
		ImportDate:  m.ImportDate,
		ExpireDate:  m.ExpireDate,
		Status:      inventory.BatchStatus(m.Status),
		SourceType:  inventory.SourceType(m.SourceType),
		SourceID:    m.SourceID,
		Note:        m.Note,
	}
}

// FromDomain populates the persistence model from a domain StockBatch
func (m *StockBatchModel) FromDomain(b *inventory.StockBatch) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.WarehouseID = b.WarehouseID
	m.ProductID = b.ProductID
	m.BatchCode = b.BatchCode
	m.QuantityIn = b.QuantityIn
	m.QuantityOut = b.QuantityOut
	m.ImportDate = b.ImportDate.UTC()
	m.ExpireDate = utcPtr(b.ExpireDate)
	m.Status = string(b.Status)
	m.SourceType = string(b.SourceType)
	m.SourceID = b.SourceID
	m.Note = b.Note
}

// StockBatchModelFromDomain creates a new persistence model from a domain StockBatch
func StockBatchModelFromDomain(b *inventory.StockBatch) *StockBatchModel {
	m := &StockBatchModel{}
	m.FromDomain(b)
	return m
}

// InventoryRecordModel is the persistence model for ledger records
type InventoryRecordModel struct {
	AggregateModel
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_records_pair,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_records_pair,priority:2"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0;check:chk_inventory_records_quantity,quantity >= 0"`
	LastUpdated time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the persistence model to a domain InventoryRecord
func (m *InventoryRecordModel) ToDomain() *inventory.InventoryRecord {
	return &inventory.InventoryRecord{
		BaseAggregateRoot: m.AggregateModel.ToAggregateRoot(),
		WarehouseID:       m.WarehouseID,
		ProductID:         m.ProductID,
		Quantity:          m.Quantity,
		LastUpdated:       m.LastUpdated,
	}
}

// FromDomain populates the persistence model from a domain InventoryRecord
func (m *InventoryRecordModel) FromDomain(r *inventory.InventoryRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.WarehouseID = r.WarehouseID
	m.ProductID = r.ProductID
	m.Quantity = r.Quantity
	m.LastUpdated = r.LastUpdated.UTC()
}

// InventoryRecordModelFromDomain creates a new persistence model from a domain InventoryRecord
func InventoryRecordModelFromDomain(r *inventory.InventoryRecord) *InventoryRecordModel {
	m := &InventoryRecordModel{}
	m.FromDomain(r)
	return m
}

// StockTransactionModel is the persistence model for stock transaction headers
type StockTransactionModel struct {
	BaseModel
	TransactionNumber string               `gorm:"type:varchar(64);not null;uniqueIndex"`
	Type              string               `gorm:"type:varchar(32);not null;index"`
	SourceWarehouseID *uuid.UUID           `gorm:"type:uuid;index"`
	DestWarehouseID   *uuid.UUID           `gorm:"type:uuid;index"`
	ReferenceID       *uuid.UUID           `gorm:"type:uuid;index"`
	TotalQuantity     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalWeight       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Note              string               `gorm:"type:varchar(500)"`
	Movements         []StockMovementModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (StockTransactionModel) TableName() string {
	return "stock_transactions"
}

// ToDomain converts the persistence model to a domain StockTransaction
func (m *StockTransactionModel) ToDomain() *inventory.StockTransaction {
	tx := &inventory.StockTransaction{
		BaseEntity:        m.BaseModel.ToDomain(),
		TransactionNumber: m.TransactionNumber,
		Type:              inventory.TransactionType(m.Type),
		SourceWarehouseID: m.SourceWarehouseID,
		DestWarehouseID:   m.DestWarehouseID,
		ReferenceID:       m.ReferenceID,
		TotalQuantity:     m.TotalQuantity,
		TotalWeight:       m.TotalWeight,
		Note:              m.Note,
		Movements:         make([]inventory.StockMovement, len(m.Movements)),
	}
	for i := range m.Movements {
		tx.Movements[i] = m.Movements[i].ToDomain()
	}
	return tx
}

// StockTransactionModelFromDomain creates a new persistence model from a
// domain StockTransaction, including its movements
func StockTransactionModelFromDomain(t *inventory.StockTransaction) *StockTransactionModel {
	m := &StockTransactionModel{
		TransactionNumber: t.TransactionNumber,
		Type:              string(t.Type),
		SourceWarehouseID: t.SourceWarehouseID,
		DestWarehouseID:   t.DestWarehouseID,
		ReferenceID:       t.ReferenceID,
		TotalQuantity:     t.TotalQuantity,
		TotalWeight:       t.TotalWeight,
		Note:              t.Note,
		Movements:         make([]StockMovementModel, len(t.Movements)),
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	for i, mv := range t.Movements {
		m.Movements[i] = StockMovementModel{
			ID:            mv.ID,
			TransactionID: t.ID,
			BatchID:       mv.BatchID,
			WarehouseID:   mv.WarehouseID,
			ProductID:     mv.ProductID,
			Direction:     string(mv.Direction),
			Quantity:      mv.Quantity,
			Seq:           i,
		}
	}
	return m
}

// StockMovementModel is one batch-level line of a stock transaction
type StockMovementModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	Direction     string          `gorm:"type:varchar(8);not null;check:chk_stock_movements_direction,direction IN ('IN','OUT')"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Seq           int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() inventory.StockMovement {
	return inventory.StockMovement{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		BatchID:       m.BatchID,
		WarehouseID:   m.WarehouseID,
		ProductID:     m.ProductID,
		Direction:     inventory.MovementDirection(m.Direction),
		Quantity:      m.Quantity,
	}
}
