package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultWriteOffBatchSize caps how many expired batches one sweep retires
const DefaultWriteOffBatchSize = 500

// InventoryService handles direct stock operations and the read model
type InventoryService struct {
	engine          *Engine
	batchRepo       inventory.StockBatchRepository
	recordRepo      inventory.InventoryRecordRepository
	transactionRepo inventory.StockTransactionRepository
	warehouseRepo   catalog.WarehouseRepository
	productRepo     catalog.ProductRepository
	writeOffLimit   int
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	engine *Engine,
	batchRepo inventory.StockBatchRepository,
	recordRepo inventory.InventoryRecordRepository,
	transactionRepo inventory.StockTransactionRepository,
	warehouseRepo catalog.WarehouseRepository,
	productRepo catalog.ProductRepository,
) *InventoryService {
	return &InventoryService{
		engine:          engine,
		batchRepo:       batchRepo,
		recordRepo:      recordRepo,
		transactionRepo: transactionRepo,
		warehouseRepo:   warehouseRepo,
		productRepo:     productRepo,
		writeOffLimit:   DefaultWriteOffBatchSize,
	}
}

// SetWriteOffLimit sets how many batches a single sweep may retire
func (s *InventoryService) SetWriteOffLimit(limit int) {
	if limit > 0 {
		s.writeOffLimit = limit
	}
}

// GetRecord returns the ledger line of a pair
func (s *InventoryService) GetRecord(ctx context.Context, warehouseID, productID uuid.UUID) (*RecordResponse, error) {
	rec, err := s.recordRepo.FindByKey(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	resp := ToRecordResponse(rec)
	return &resp, nil
}

// ListRecords lists ledger lines
func (s *InventoryService) ListRecords(ctx context.Context, filter RecordListFilter) ([]RecordResponse, int64, error) {
	records, total, err := s.recordRepo.List(ctx, filter.toDomain())
	if err != nil {
		return nil, 0, err
	}
	out := make([]RecordResponse, len(records))
	for i, rec := range records {
		out[i] = ToRecordResponse(rec)
	}
	return out, total, nil
}

// GetBatch returns a batch by ID
func (s *InventoryService) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	b, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(b)
	return &resp, nil
}

// ListBatches lists batches. Fully consumed batches are hidden unless asked for.
func (s *InventoryService) ListBatches(ctx context.Context, filter BatchListFilter) ([]BatchResponse, int64, error) {
	if filter.Status != "" && !inventory.BatchStatus(filter.Status).IsValid() {
		return nil, 0, shared.NewValidationError("unknown batch status %q", filter.Status)
	}
	batches, total, err := s.batchRepo.List(ctx, filter.toDomain())
	if err != nil {
		return nil, 0, err
	}
	return ToBatchResponses(batches), total, nil
}

// GetTransaction returns a stock transaction with its movements
func (s *InventoryService) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// Allocate issues stock out of a warehouse in FIFO order
func (s *InventoryService) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "allocate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrWarehouseID, req.WarehouseID.String(),
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	if !req.Quantity.IsPositive() {
		err := shared.NewValidationError("quantity must be positive, got %s", req.Quantity)
		telemetry.RecordError(span, err)
		return nil, err
	}
	product, err := s.lookupPair(ctx, req.WarehouseID, req.ProductID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		tx   *inventory.StockTransaction
		plan *inventory.AllocationPlan
		rec  *inventory.InventoryRecord
	)
	err = s.engine.Run(ctx, "allocate", []string{StockKey(req.WarehouseID, req.ProductID)}, func(u *Unit) error {
		now := s.engine.Now()
		var err error
		plan, err = s.engine.Allocator.Allocate(ctx, u, Demand{
			WarehouseID: req.WarehouseID,
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
		}, now)
		if err != nil {
			return err
		}
		rec, err = s.engine.Ledger.Adjust(ctx, u, req.WarehouseID, req.ProductID, req.Quantity.Neg())
		if err != nil {
			return err
		}

		tx = inventory.NewStockTransaction(inventory.TransactionIssue, now)
		tx.SourceWarehouseID = &req.WarehouseID
		tx.ReferenceID = req.ReferenceID
		tx.Note = req.Note
		tx.RecordOut(plan)
		tx.AddTotals(req.Quantity, product.UnitWeight)
		if err := u.Repos().TransactionRepo().Create(ctx, tx); err != nil {
			return fmt.Errorf("save issue transaction: %w", err)
		}
		u.Collect(inventory.NewStockAllocatedEvent(tx, plan))
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			s.engine.Metrics().RecordAllocationFailure(ctx, "issue")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.engine.Metrics().RecordAllocation(ctx, "issue")

	return &AllocationResponse{
		TransactionID: tx.ID,
		WarehouseID:   req.WarehouseID,
		ProductID:     req.ProductID,
		Quantity:      plan.Total(),
		Remaining:     rec.Quantity,
		Lines:         toAllocationLines(plan),
	}, nil
}

// Receive books a single inbound lot
func (s *InventoryService) Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "receive")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrWarehouseID, req.WarehouseID.String(),
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	prefix := NormalizeBatchPrefix(req.BatchPrefix, inventory.PrefixReceipt)
	if err := ValidateReceipt(req.Quantity, req.ExpireDate, s.engine.Now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	product, err := s.lookupPair(ctx, req.WarehouseID, req.ProductID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		tx    *inventory.StockTransaction
		batch *inventory.StockBatch
	)
	keys := []string{StockKey(req.WarehouseID, req.ProductID), BatchCodeKey(prefix)}
	err = s.engine.Run(ctx, "receive", keys, func(u *Unit) error {
		now := s.engine.Now()
		tx = inventory.NewStockTransaction(inventory.TransactionReceipt, now)
		tx.DestWarehouseID = &req.WarehouseID
		tx.ReferenceID = req.ReferenceID
		tx.Note = req.Note

		sourceID := tx.ID
		if req.ReferenceID != nil {
			sourceID = *req.ReferenceID
		}
		var err error
		batch, err = s.engine.Minter.Mint(ctx, u, MintSpec{
			WarehouseID: req.WarehouseID,
			ProductID:   req.ProductID,
			Prefix:      prefix,
			Quantity:    req.Quantity,
			ImportDate:  now,
			ExpireDate:  req.ExpireDate,
			SourceType:  inventory.SourceReceipt,
			SourceID:    &sourceID,
			Note:        req.Note,
		})
		if err != nil {
			return err
		}
		tx.RecordIn(batch)
		tx.AddTotals(req.Quantity, product.UnitWeight)
		if err := u.Repos().TransactionRepo().Create(ctx, tx); err != nil {
			return fmt.Errorf("save receipt transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.engine.Metrics().RecordBatchesMinted(ctx, string(inventory.SourceReceipt), 1)
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchCode, batch.BatchCode)
	return &ReceiveResponse{TransactionID: tx.ID, Batch: ToBatchResponse(batch)}, nil
}

// WriteOffExpired retires active batches that expired on or before asOf and
// takes their remainder off the ledger. Pairs locked by a concurrent unit
// between discovery and execution are left for the next sweep.
func (s *InventoryService) WriteOffExpired(ctx context.Context, asOf time.Time) (*WriteOffResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "write_off_expired")
	defer span.End()

	if asOf.IsZero() {
		asOf = s.engine.Now()
	}
	resp := &WriteOffResponse{AsOf: asOf, TotalQuantity: decimal.Zero, Batches: []BatchResponse{}}

	candidates, err := s.batchRepo.FindExpiredForUpdate(ctx, asOf, s.writeOffLimit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find expired batches: %w", err)
	}
	if len(candidates) == 0 {
		return resp, nil
	}

	keys := make([]string, 0, len(candidates))
	for _, b := range candidates {
		keys = append(keys, StockKey(b.WarehouseID, b.ProductID))
	}

	var (
		tx      *inventory.StockTransaction
		retired []*inventory.StockBatch
	)
	err = s.engine.Run(ctx, "write_off", keys, func(u *Unit) error {
		now := s.engine.Now()
		batches, err := u.Repos().BatchRepo().FindExpiredForUpdate(ctx, asOf, s.writeOffLimit)
		if err != nil {
			return err
		}

		tx = inventory.NewStockTransaction(inventory.TransactionWriteOff, now)
		tx.Note = "expired as of " + asOf.Format(time.RFC3339)
		retired = retired[:0]
		for _, b := range batches {
			if u.requireKey(StockKey(b.WarehouseID, b.ProductID)) != nil {
				continue
			}
			qty := b.WriteOff(now)
			if qty.IsPositive() {
				if _, err := s.engine.Ledger.Adjust(ctx, u, b.WarehouseID, b.ProductID, qty.Neg()); err != nil {
					return err
				}
				tx.RecordBatchOut(b, qty)
				tx.AddTotals(qty, decimal.Zero)
			}
			u.Collect(inventory.NewBatchWrittenOffEvent(b, qty))
			retired = append(retired, b)
		}
		if len(retired) == 0 {
			return nil
		}
		if err := u.Repos().BatchRepo().SaveConsumption(ctx, retired); err != nil {
			return err
		}
		return u.Repos().TransactionRepo().Create(ctx, tx)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(retired) == 0 {
		return resp, nil
	}

	s.engine.Metrics().RecordWriteOffs(ctx, len(retired))
	resp.BatchCount = len(retired)
	resp.TotalQuantity = tx.TotalQuantity
	resp.TransactionID = &tx.ID
	resp.Batches = ToBatchResponses(retired)
	s.engine.Logger().Info("expired batches written off",
		zap.Time("as_of", asOf),
		zap.Int("batches", resp.BatchCount),
		zap.String("quantity", resp.TotalQuantity.String()),
	)
	return resp, nil
}

// Reconcile compares each ledger quantity with the remaining stock of its
// batches. It only reads.
func (s *InventoryService) Reconcile(ctx context.Context, warehouseID *uuid.UUID) (*ReconcileResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "reconcile")
	defer span.End()

	type pair struct{ w, p uuid.UUID }
	batchTotals := make(map[pair]decimal.Decimal)
	sums, err := s.batchRepo.SumRemaining(ctx, warehouseID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("sum batch remaining: %w", err)
	}
	for _, q := range sums {
		batchTotals[pair{q.WarehouseID, q.ProductID}] = q.Quantity
	}

	ledger := make(map[pair]decimal.Decimal)
	filter := inventory.RecordFilter{
		Filter:      shared.Filter{Page: 1, PageSize: shared.MaxPageSize, OrderBy: "id", OrderDir: "asc"},
		WarehouseID: warehouseID,
	}
	for {
		records, total, err := s.recordRepo.List(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("list records: %w", err)
		}
		for _, rec := range records {
			ledger[pair{rec.WarehouseID, rec.ProductID}] = rec.Quantity
		}
		if len(records) == 0 || int64(filter.Page*filter.PageSize) >= total {
			break
		}
		filter.Page++
	}

	resp := &ReconcileResponse{Discrepancies: []Discrepancy{}}
	seen := make(map[pair]struct{}, len(ledger)+len(batchTotals))
	check := func(k pair) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		l, b := ledger[k], batchTotals[k]
		if !l.Equal(b) {
			resp.Discrepancies = append(resp.Discrepancies, Discrepancy{
				WarehouseID:    k.w,
				ProductID:      k.p,
				LedgerQuantity: l,
				BatchQuantity:  b,
				Difference:     l.Sub(b),
			})
		}
	}
	for k := range ledger {
		check(k)
	}
	for k := range batchTotals {
		check(k)
	}
	resp.CheckedPairs = len(seen)
	resp.Consistent = len(resp.Discrepancies) == 0

	if !resp.Consistent {
		s.engine.Logger().Warn("inventory ledger drifted from batches",
			zap.Int("discrepancies", len(resp.Discrepancies)),
		)
	}
	return resp, nil
}

func (s *InventoryService) lookupPair(ctx context.Context, warehouseID, productID uuid.UUID) (*catalog.Product, error) {
	if _, err := s.warehouseRepo.FindByID(ctx, warehouseID); err != nil {
		return nil, err
	}
	return s.productRepo.FindByID(ctx, productID)
}

// NormalizeBatchPrefix upper-cases prefix, falling back to def when blank
func NormalizeBatchPrefix(prefix, def string) string {
	if p := inventory.NormalizeBatchPrefix(prefix); p != "" {
		return p
	}
	return def
}

// ValidateReceipt checks an inbound quantity and expiry against now. The expiry
// must fall on a later calendar day.
func ValidateReceipt(qty decimal.Decimal, expireDate *time.Time, now time.Time) error {
	if !qty.IsPositive() {
		return shared.NewValidationError("quantity must be positive, got %s", qty)
	}
	if expireDate != nil {
		n := now.In(expireDate.Location())
		tomorrow := time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, n.Location())
		if expireDate.Before(tomorrow) {
			return shared.NewValidationError("expire date %s must be after today", expireDate.Format("2006-01-02"))
		}
	}
	return nil
}
