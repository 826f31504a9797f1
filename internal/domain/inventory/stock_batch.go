package inventory

import (
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle flag of a lot
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "ACTIVE"
	BatchStatusInactive BatchStatus = "INACTIVE"
)

// IsValid reports whether s is a known batch status
func (s BatchStatus) IsValid() bool {
	return s == BatchStatusActive || s == BatchStatusInactive
}

// SourceType identifies what created a batch
type SourceType string

const (
	SourceNone       SourceType = "NONE"
	SourceReceipt    SourceType = "RECEIPT"
	SourceTransfer   SourceType = "TRANSFER"
	SourceProduction SourceType = "PRODUCTION"
)

// StockBatch is one received lot of a product at a warehouse.
// QuantityIn never changes after creation; QuantityOut only grows.
type StockBatch struct {
	shared.BaseEntity
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	BatchCode   string
	QuantityIn  decimal.Decimal
	QuantityOut decimal.Decimal
	ImportDate  time.Time
	ExpireDate  *time.Time
	Status      BatchStatus
	SourceType  SourceType
	SourceID    *uuid.UUID
	Note        string
}

// BatchSpec carries the attributes of a batch about to be minted
type BatchSpec struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	BatchCode   string
	Quantity    decimal.Decimal
	ImportDate  time.Time
	ExpireDate  *time.Time
	SourceType  SourceType
	SourceID    *uuid.UUID
	Note        string
}

// NewStockBatch creates an active batch with nothing consumed
func NewStockBatch(spec BatchSpec) (*StockBatch, error) {
	if spec.WarehouseID == uuid.Nil {
		return nil, shared.NewValidationError("warehouse id is required")
	}
	if spec.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("product id is required")
	}
	code := strings.TrimSpace(spec.BatchCode)
	if code == "" {
		return nil, shared.NewValidationError("batch code is required")
	}
	if !spec.Quantity.IsPositive() {
		return nil, shared.NewValidationError("batch quantity must be positive, got %s", spec.Quantity)
	}
	if spec.ImportDate.IsZero() {
		spec.ImportDate = time.Now()
	}
	if spec.SourceType == "" {
		spec.SourceType = SourceNone
	}

	return &StockBatch{
		BaseEntity:  shared.NewBaseEntityAt(spec.ImportDate),
		WarehouseID: spec.WarehouseID,
		ProductID:   spec.ProductID,
		BatchCode:   code,
		QuantityIn:  spec.Quantity,
		QuantityOut: decimal.Zero,
		ImportDate:  spec.ImportDate,
		ExpireDate:  spec.ExpireDate,
		Status:      BatchStatusActive,
		SourceType:  spec.SourceType,
		SourceID:    spec.SourceID,
		Note:        spec.Note,
	}, nil
}

// Remaining returns QuantityIn - QuantityOut
func (b *StockBatch) Remaining() decimal.Decimal {
	return b.QuantityIn.Sub(b.QuantityOut)
}

// IsActive returns true if the batch has not been retired
func (b *StockBatch) IsActive() bool {
	return b.Status == BatchStatusActive
}

// IsExpiredAt returns true if the batch expiry is on or before asOf.
// A batch without an expiry date never expires.
func (b *StockBatch) IsExpiredAt(asOf time.Time) bool {
	if b.ExpireDate == nil {
		return false
	}
	return !b.ExpireDate.After(asOf)
}

// IsEligibleAt reports whether FIFO allocation may draw from this batch
func (b *StockBatch) IsEligibleAt(asOf time.Time) bool {
	return b.IsActive() && b.Remaining().IsPositive() && !b.IsExpiredAt(asOf)
}

// Consume records amount as taken from the batch
func (b *StockBatch) Consume(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("consumed amount must be positive, got %s", amount)
	}
	if !b.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidOperation, "batch "+b.BatchCode+" is inactive")
	}
	if amount.GreaterThan(b.Remaining()) {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			"batch "+b.BatchCode+" has "+b.Remaining().String()+" remaining, cannot take "+amount.String())
	}
	b.QuantityOut = b.QuantityOut.Add(amount)
	b.Touch(now)
	return nil
}

// WriteOff consumes whatever is left and retires the batch. It returns the
// amount written off so the caller can decrement the ledger by the same value.
func (b *StockBatch) WriteOff(now time.Time) decimal.Decimal {
	left := b.Remaining()
	b.QuantityOut = b.QuantityIn
	b.Status = BatchStatusInactive
	b.Touch(now)
	return left
}
