package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordResponse represents an inventory record in API responses
type RecordResponse struct {
	ID          uuid.UUID       `json:"id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	LastUpdated time.Time       `json:"last_updated"`
	Version     int             `json:"version"`
}

// BatchResponse represents a stock batch in API responses
type BatchResponse struct {
	ID          uuid.UUID       `json:"id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	BatchCode   string          `json:"batch_code"`
	QuantityIn  decimal.Decimal `json:"quantity_in"`
	QuantityOut decimal.Decimal `json:"quantity_out"`
	Remaining   decimal.Decimal `json:"remaining"`
	ImportDate  time.Time       `json:"import_date"`
	ExpireDate  *time.Time      `json:"expire_date,omitempty"`
	Status      string          `json:"status"`
	SourceType  string          `json:"source_type"`
	SourceID    *uuid.UUID      `json:"source_id,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// MovementResponse represents one batch movement of a transaction
type MovementResponse struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Direction   string          `json:"direction"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// TransactionResponse represents a stock transaction header with its movements
type TransactionResponse struct {
	ID                uuid.UUID          `json:"id"`
	TransactionNumber string             `json:"transaction_number"`
	Type              string             `json:"type"`
	SourceWarehouseID *uuid.UUID         `json:"source_warehouse_id,omitempty"`
	DestWarehouseID   *uuid.UUID         `json:"dest_warehouse_id,omitempty"`
	ReferenceID       *uuid.UUID         `json:"reference_id,omitempty"`
	TotalQuantity     decimal.Decimal    `json:"total_quantity"`
	TotalWeight       decimal.Decimal    `json:"total_weight"`
	Note              string             `json:"note,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	Movements         []MovementResponse `json:"movements"`
}

// AllocationLineResponse is one batch slice of an allocation
type AllocationLineResponse struct {
	BatchID    uuid.UUID       `json:"batch_id"`
	BatchCode  string          `json:"batch_code"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExpireDate *time.Time      `json:"expire_date,omitempty"`
}

// AllocateRequest is an outbound issue from one warehouse
type AllocateRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	Note        string          `json:"note" binding:"max=500"`
}

// AllocationResponse is the result of an outbound issue
type AllocationResponse struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	WarehouseID   uuid.UUID                `json:"warehouse_id"`
	ProductID     uuid.UUID                `json:"product_id"`
	Quantity      decimal.Decimal          `json:"quantity"`
	Remaining     decimal.Decimal          `json:"remaining"`
	Lines         []AllocationLineResponse `json:"lines"`
}

// ReceiveRequest is a single inbound receipt
type ReceiveRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	BatchPrefix string          `json:"batch_prefix" binding:"max=32"`
	ExpireDate  *time.Time      `json:"expire_date"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	Note        string          `json:"note" binding:"max=500"`
}

// ReceiveResponse is the result of a receipt
type ReceiveResponse struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	Batch         BatchResponse `json:"batch"`
}

// TransferLine is one product line of a transfer
type TransferLine struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
}

// TransferRequest moves stock between two warehouses
type TransferRequest struct {
	SourceWarehouseID uuid.UUID      `json:"source_warehouse_id" binding:"required"`
	DestWarehouseID   uuid.UUID      `json:"dest_warehouse_id" binding:"required"`
	Lines             []TransferLine `json:"lines" binding:"required,min=1,dive"`
	ReferenceID       *uuid.UUID     `json:"reference_id"`
	Note              string         `json:"note" binding:"max=500"`
}

// TransferResponse is the committed transfer
type TransferResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Batches     []BatchResponse     `json:"batches"`
}

// WriteOffResponse summarizes an expiry sweep
type WriteOffResponse struct {
	AsOf          time.Time       `json:"as_of"`
	BatchCount    int             `json:"batch_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Batches       []BatchResponse `json:"batches"`
}

// Discrepancy is a pair whose ledger disagrees with its batches
type Discrepancy struct {
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	LedgerQuantity decimal.Decimal `json:"ledger_quantity"`
	BatchQuantity  decimal.Decimal `json:"batch_quantity"`
	Difference     decimal.Decimal `json:"difference"`
}

// ReconcileResponse is the result of comparing ledgers with batches
type ReconcileResponse struct {
	CheckedPairs  int           `json:"checked_pairs"`
	Consistent    bool          `json:"consistent"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// RecordListFilter represents filter options for the record list
type RecordListFilter struct {
	WarehouseID *uuid.UUID `form:"-"`
	ProductID   *uuid.UUID `form:"-"`
	NonZeroOnly bool       `form:"non_zero_only"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BatchListFilter represents filter options for the batch list
type BatchListFilter struct {
	WarehouseID  *uuid.UUID `form:"-"`
	ProductID    *uuid.UUID `form:"-"`
	Status       string     `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	CodePrefix   string     `form:"code_prefix"`
	IncludeEmpty bool       `form:"include_empty"`
	Page         int        `form:"page" binding:"omitempty,min=1"`
	PageSize     int        `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f RecordListFilter) toDomain() inventory.RecordFilter {
	return inventory.RecordFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		}.Normalize(),
		WarehouseID: f.WarehouseID,
		ProductID:   f.ProductID,
		NonZeroOnly: f.NonZeroOnly,
	}
}

func (f BatchListFilter) toDomain() inventory.BatchFilter {
	return inventory.BatchFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		}.Normalize(),
		WarehouseID:  f.WarehouseID,
		ProductID:    f.ProductID,
		Status:       inventory.BatchStatus(f.Status),
		CodePrefix:   f.CodePrefix,
		IncludeEmpty: f.IncludeEmpty,
	}
}

// ToRecordResponse converts a domain record to a response
func ToRecordResponse(rec *inventory.InventoryRecord) RecordResponse {
	return RecordResponse{
		ID:          rec.ID,
		WarehouseID: rec.WarehouseID,
		ProductID:   rec.ProductID,
		Quantity:    rec.Quantity,
		LastUpdated: rec.LastUpdated,
		Version:     rec.Version,
	}
}

// ToBatchResponse converts a domain batch to a response
func ToBatchResponse(b *inventory.StockBatch) BatchResponse {
	return BatchResponse{
		ID:          b.ID,
		WarehouseID: b.WarehouseID,
		ProductID:   b.ProductID,
		BatchCode:   b.BatchCode,
		QuantityIn:  b.QuantityIn,
		QuantityOut: b.QuantityOut,
		Remaining:   b.Remaining(),
		ImportDate:  b.ImportDate,
		ExpireDate:  b.ExpireDate,
		Status:      string(b.Status),
		SourceType:  string(b.SourceType),
		SourceID:    b.SourceID,
		Note:        b.Note,
	}
}

// ToBatchResponses converts a slice of batches
func ToBatchResponses(batches []*inventory.StockBatch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i, b := range batches {
		out[i] = ToBatchResponse(b)
	}
	return out
}

// ToTransactionResponse converts a domain transaction to a response
func ToTransactionResponse(tx *inventory.StockTransaction) TransactionResponse {
	movements := make([]MovementResponse, len(tx.Movements))
	for i, m := range tx.Movements {
		movements[i] = MovementResponse{
			BatchID:     m.BatchID,
			WarehouseID: m.WarehouseID,
			ProductID:   m.ProductID,
			Direction:   string(m.Direction),
			Quantity:    m.Quantity,
		}
	}
	return TransactionResponse{
		ID:                tx.ID,
		TransactionNumber: tx.TransactionNumber,
		Type:              string(tx.Type),
		SourceWarehouseID: tx.SourceWarehouseID,
		DestWarehouseID:   tx.DestWarehouseID,
		ReferenceID:       tx.ReferenceID,
		TotalQuantity:     tx.TotalQuantity,
		TotalWeight:       tx.TotalWeight,
		Note:              tx.Note,
		CreatedAt:         tx.CreatedAt,
		Movements:         movements,
	}
}

func toAllocationLines(plan *inventory.AllocationPlan) []AllocationLineResponse {
	out := make([]AllocationLineResponse, len(plan.Lines))
	for i, l := range plan.Lines {
		out[i] = AllocationLineResponse{
			BatchID:    l.BatchID,
			BatchCode:  l.BatchCode,
			Quantity:   l.Quantity,
			ExpireDate: l.ExpireDate,
		}
	}
	return out
}
