package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a stock transaction header
type TransactionType string

const (
	TransactionTransfer          TransactionType = "TRANSFER"
	TransactionReceipt           TransactionType = "RECEIPT"
	TransactionIssue             TransactionType = "ISSUE"
	TransactionProductionConsume TransactionType = "PRODUCTION_CONSUME"
	TransactionProductionOutput  TransactionType = "PRODUCTION_OUTPUT"
	TransactionWriteOff          TransactionType = "WRITE_OFF"
)

// MovementDirection says whether a movement added or removed stock
type MovementDirection string

const (
	DirectionIn  MovementDirection = "IN"
	DirectionOut MovementDirection = "OUT"
)

// StockMovement is one batch-level line of a transaction
type StockMovement struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	BatchID       uuid.UUID
	WarehouseID   uuid.UUID
	ProductID     uuid.UUID
	Direction     MovementDirection
	Quantity      decimal.Decimal
}

// StockTransaction is the audit header written by every mutating unit
type StockTransaction struct {
	shared.BaseEntity
	TransactionNumber string
	Type              TransactionType
	SourceWarehouseID *uuid.UUID
	DestWarehouseID   *uuid.UUID
	ReferenceID       *uuid.UUID
	TotalQuantity     decimal.Decimal
	TotalWeight       decimal.Decimal
	Note              string
	Movements         []StockMovement
}

// NewStockTransaction starts an empty transaction of the given type. The
// number embeds the whole ID, so units holding disjoint locks never race
// for the same number.
func NewStockTransaction(txType TransactionType, now time.Time) *StockTransaction {
	base := shared.NewBaseEntityAt(now)
	return &StockTransaction{
		BaseEntity:        base,
		TransactionNumber: TransactionNumber(txType, now, base.ID),
		Type:              txType,
		TotalQuantity:     decimal.Zero,
		TotalWeight:       decimal.Zero,
	}
}

// TransactionNumber renders "<TYPE>-<YYYYMMDD>-<32 hex digits of id>"
func TransactionNumber(txType TransactionType, at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", txType, at.Format("20060102"),
		strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")))
}

// RecordOut appends one outbound movement per planned line. Totals are only
// counted for the outbound side of transfers and issues.
func (t *StockTransaction) RecordOut(plan *AllocationPlan) {
	for _, l := range plan.Lines {
		t.Movements = append(t.Movements, StockMovement{
			ID:            uuid.New(),
			TransactionID: t.ID,
			BatchID:       l.BatchID,
			WarehouseID:   plan.WarehouseID,
			ProductID:     plan.ProductID,
			Direction:     DirectionOut,
			Quantity:      l.Quantity,
		})
	}
}

// RecordIn appends the inbound movement of a minted batch
func (t *StockTransaction) RecordIn(batch *StockBatch) {
	t.Movements = append(t.Movements, StockMovement{
		ID:            uuid.New(),
		TransactionID: t.ID,
		BatchID:       batch.ID,
		WarehouseID:   batch.WarehouseID,
		ProductID:     batch.ProductID,
		Direction:     DirectionIn,
		Quantity:      batch.QuantityIn,
	})
}

// AddTotals accumulates moved quantity and weight
func (t *StockTransaction) AddTotals(qty, unitWeight decimal.Decimal) {
	t.TotalQuantity = t.TotalQuantity.Add(qty)
	t.TotalWeight = t.TotalWeight.Add(qty.Mul(unitWeight))
}

// RecordBatchOut appends an outbound movement of qty taken from a single batch
func (t *StockTransaction) RecordBatchOut(batch *StockBatch, qty decimal.Decimal) {
	t.Movements = append(t.Movements, StockMovement{
		ID:            uuid.New(),
		TransactionID: t.ID,
		BatchID:       batch.ID,
		WarehouseID:   batch.WarehouseID,
		ProductID:     batch.ProductID,
		Direction:     DirectionOut,
		Quantity:      qty,
	})
}
