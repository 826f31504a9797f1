package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferCoordinator moves stock between warehouses as one atomic unit
type TransferCoordinator struct {
	engine        *Engine
	warehouseRepo catalog.WarehouseRepository
	productRepo   catalog.ProductRepository
}

// NewTransferCoordinator creates a TransferCoordinator
func NewTransferCoordinator(engine *Engine, warehouseRepo catalog.WarehouseRepository, productRepo catalog.ProductRepository) *TransferCoordinator {
	return &TransferCoordinator{
		engine:        engine,
		warehouseRepo: warehouseRepo,
		productRepo:   productRepo,
	}
}

// Transfer consumes every line FIFO at the source and mints one batch per line
// at the destination. Any failure leaves both warehouses untouched.
func (c *TransferCoordinator) Transfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer", "execute")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrWarehouseID, req.SourceWarehouseID.String(),
		telemetry.SpanAttrDestWarehouseID, req.DestWarehouseID.String(),
		telemetry.SpanAttrLineCount, len(req.Lines),
	)

	if err := validateTransferRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	products, err := c.resolveCatalog(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	keys := make([]string, 0, 2*len(req.Lines)+1)
	for _, line := range req.Lines {
		keys = append(keys,
			StockKey(req.SourceWarehouseID, line.ProductID),
			StockKey(req.DestWarehouseID, line.ProductID),
		)
	}
	keys = append(keys, BatchCodeKey(inventory.PrefixTransfer))

	var (
		tx     *inventory.StockTransaction
		minted []*inventory.StockBatch
	)
	err = c.engine.Run(ctx, "transfer", keys, func(u *Unit) error {
		if err := c.checkSourceLedger(ctx, u, req); err != nil {
			return err
		}

		now := c.engine.Now()
		tx = inventory.NewStockTransaction(inventory.TransactionTransfer, now)
		tx.SourceWarehouseID = &req.SourceWarehouseID
		tx.DestWarehouseID = &req.DestWarehouseID
		tx.ReferenceID = req.ReferenceID
		tx.Note = req.Note
		minted = make([]*inventory.StockBatch, 0, len(req.Lines))

		for i, line := range req.Lines {
			plan, err := c.engine.Allocator.Allocate(ctx, u, Demand{
				WarehouseID: req.SourceWarehouseID,
				ProductID:   line.ProductID,
				Quantity:    line.Quantity,
			}, now)
			if err != nil {
				return annotateLine(err, i, line.ProductID)
			}
			if _, err := c.engine.Ledger.Adjust(ctx, u, req.SourceWarehouseID, line.ProductID, line.Quantity.Neg()); err != nil {
				return annotateLine(err, i, line.ProductID)
			}

			txID := tx.ID
			batch, err := c.engine.Minter.Mint(ctx, u, MintSpec{
				WarehouseID: req.DestWarehouseID,
				ProductID:   line.ProductID,
				Prefix:      inventory.PrefixTransfer,
				Quantity:    line.Quantity,
				ImportDate:  now,
				ExpireDate:  plan.EarliestExpiry(),
				SourceType:  inventory.SourceTransfer,
				SourceID:    &txID,
				Note:        req.Note,
			})
			if err != nil {
				return annotateLine(err, i, line.ProductID)
			}

			tx.RecordOut(plan)
			tx.RecordIn(batch)
			tx.AddTotals(line.Quantity, products[line.ProductID].UnitWeight)
			u.Collect(inventory.NewStockAllocatedEvent(tx, plan))
			minted = append(minted, batch)
		}

		if err := u.Repos().TransactionRepo().Create(ctx, tx); err != nil {
			return fmt.Errorf("save transfer transaction: %w", err)
		}
		u.Collect(inventory.NewStockTransferredEvent(tx, req.SourceWarehouseID, req.DestWarehouseID))
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			c.engine.Metrics().RecordAllocationFailure(ctx, "transfer")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	c.engine.Metrics().RecordAllocation(ctx, "transfer")
	c.engine.Metrics().RecordBatchesMinted(ctx, string(inventory.SourceTransfer), len(minted))
	telemetry.SetAttributes(span, telemetry.SpanAttrTransactionID, tx.ID.String())
	c.engine.Logger().Info("stock transferred",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("source_warehouse_id", req.SourceWarehouseID.String()),
		zap.String("dest_warehouse_id", req.DestWarehouseID.String()),
		zap.String("total_quantity", tx.TotalQuantity.String()),
		zap.Int("lines", len(req.Lines)),
	)

	return &TransferResponse{
		Transaction: ToTransactionResponse(tx),
		Batches:     ToBatchResponses(minted),
	}, nil
}

func validateTransferRequest(req TransferRequest) error {
	if req.SourceWarehouseID == uuid.Nil || req.DestWarehouseID == uuid.Nil {
		return shared.NewValidationError("source and destination warehouses are required")
	}
	if req.SourceWarehouseID == req.DestWarehouseID {
		return shared.NewValidationError("source and destination warehouse must differ").
			WithDetail("warehouse_id", req.SourceWarehouseID.String())
	}
	if len(req.Lines) == 0 {
		return shared.NewValidationError("transfer has no lines")
	}
	for i, line := range req.Lines {
		if line.ProductID == uuid.Nil {
			return shared.NewValidationError("line %d: product id is required", i+1).WithDetail("line", i+1)
		}
		if !line.Quantity.IsPositive() {
			return shared.NewValidationError("line %d: quantity must be positive, got %s", i+1, line.Quantity).
				WithDetail("line", i+1).
				WithDetail("product_id", line.ProductID.String())
		}
	}
	return nil
}

func (c *TransferCoordinator) resolveCatalog(ctx context.Context, req TransferRequest) (map[uuid.UUID]*catalog.Product, error) {
	for _, id := range []uuid.UUID{req.SourceWarehouseID, req.DestWarehouseID} {
		if _, err := c.warehouseRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	ids := make([]uuid.UUID, 0, len(req.Lines))
	for _, line := range req.Lines {
		ids = append(ids, line.ProductID)
	}
	products, err := c.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, line := range req.Lines {
		if _, ok := products[line.ProductID]; !ok {
			return nil, annotateLine(shared.NewNotFoundError("product", line.ProductID), i, line.ProductID)
		}
	}
	return products, nil
}

// checkSourceLedger verifies every line against the source ledger before
// anything is touched. Repeated products are checked against their sum.
func (c *TransferCoordinator) checkSourceLedger(ctx context.Context, u *Unit, req TransferRequest) error {
	required := make(map[uuid.UUID]decimal.Decimal, len(req.Lines))
	for i, line := range req.Lines {
		need := required[line.ProductID].Add(line.Quantity)
		required[line.ProductID] = need

		have, err := c.engine.Ledger.Quantity(ctx, u, req.SourceWarehouseID, line.ProductID)
		if err != nil {
			return err
		}
		if have.LessThan(need) {
			return annotateLine(
				inventory.NewInsufficientStockError(req.SourceWarehouseID, line.ProductID, need, have),
				i, line.ProductID)
		}
	}
	return nil
}

// annotateLine attaches the 1-based line number and product to domain errors
func annotateLine(err error, index int, productID uuid.UUID) error {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return fmt.Errorf("line %d: %w", index+1, err)
	}
	out := de.WithDetail("line", index+1).WithDetail("product_id", productID.String())
	out.Message = fmt.Sprintf("line %d: %s", index+1, de.Message)
	return out
}
