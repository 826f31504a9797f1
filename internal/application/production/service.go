package production

import (
	"context"
	"errors"
	"fmt"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderKey serializes units that transition the same order
func OrderKey(orderID uuid.UUID) string {
	return "production-order:" + orderID.String()
}

// OrderNumberKey serializes creation of orders sharing a number
func OrderNumberKey(orderNumber string) string {
	return "production-order-number:" + orderNumber
}

// Service drives production orders through their lifecycle. Starting consumes
// materials FIFO and finishing mints finished goods.
type Service struct {
	engine        *inventoryapp.Engine
	orderRepo     production.ProductionOrderRepository
	warehouseRepo catalog.WarehouseRepository
	productRepo   catalog.ProductRepository
	roles         production.WarehouseRoles
	logger        *zap.Logger
}

// NewService creates a production Service
func NewService(
	engine *inventoryapp.Engine,
	orderRepo production.ProductionOrderRepository,
	warehouseRepo catalog.WarehouseRepository,
	productRepo catalog.ProductRepository,
	roles production.WarehouseRoles,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:        engine,
		orderRepo:     orderRepo,
		warehouseRepo: warehouseRepo,
		productRepo:   productRepo,
		roles:         roles,
		logger:        logger,
	}
}

// Create validates the lines against the catalog and stores a PENDING order
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "create")
	defer span.End()

	if err := s.roles.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	materials := make([]production.MaterialInput, len(req.Materials))
	for i, m := range req.Materials {
		materials[i] = production.MaterialInput{ProductID: m.ProductID, Quantity: m.Quantity, WarehouseID: m.WarehouseID}
	}
	outputs := make([]production.OutputInput, len(req.Outputs))
	for i, o := range req.Outputs {
		outputs[i] = production.OutputInput{ProductID: o.ProductID, Quantity: o.Quantity, WarehouseID: o.WarehouseID}
	}
	now := s.engine.Now()
	order, err := production.NewProductionOrder(req.OrderNumber, materials, outputs, req.Note, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.checkCatalog(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// generated numbers of one day share a single key so their counter is
	// read and used under the same lock
	generate := order.OrderNumber == ""
	prefix := production.OrderNumberPrefix(now.UTC())
	numberKey := OrderNumberKey(order.OrderNumber)
	if generate {
		numberKey = OrderNumberKey(prefix)
	}

	err = s.engine.Run(ctx, "production_create", []string{numberKey}, func(u *inventoryapp.Unit) error {
		orders := u.Repos().ProductionOrderRepo()
		if generate {
			number, err := nextOrderNumber(ctx, orders, prefix)
			if err != nil {
				return err
			}
			if err := order.AssignNumber(number); err != nil {
				return err
			}
		} else {
			exists, err := orders.ExistsByOrderNumber(ctx, order.OrderNumber)
			if err != nil {
				return err
			}
			if exists {
				return shared.NewDomainError(shared.CodeDuplicateCode,
					fmt.Sprintf("production order number %s already exists", order.OrderNumber)).
					WithDetail("order_number", order.OrderNumber)
			}
		}
		if err := orders.Create(ctx, order); err != nil {
			return err
		}
		u.CollectFrom(order)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, order.ID.String())
	s.logger.Info("production order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	)
	resp := ToOrderResponse(order, s.roles)
	return &resp, nil
}

// nextOrderNumber continues the daily counter under prefix, skipping numbers
// that were entered by hand
func nextOrderNumber(ctx context.Context, orders production.ProductionOrderRepository, prefix string) (string, error) {
	maxSuffix, err := orders.MaxOrderNumberSuffix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("read max order number under %s: %w", prefix, err)
	}
	for n := maxSuffix + 1; n <= maxSuffix+inventoryapp.MaxCodeProbes; n++ {
		number := production.FormatOrderNumber(prefix, n)
		exists, err := orders.ExistsByOrderNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", shared.NewDomainError(shared.CodeDuplicateCode,
		fmt.Sprintf("no free order number under %s after %d attempts", prefix, inventoryapp.MaxCodeProbes)).
		WithDetail("prefix", prefix)
}

// Get returns an order by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order, s.roles)
	return &resp, nil
}

// List lists orders, optionally by status
func (s *Service) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	f, err := filter.toDomain()
	if err != nil {
		return nil, 0, err
	}
	orders, total, err := s.orderRepo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o, s.roles)
	}
	return out, total, nil
}

// Start consumes every material line and moves the order to PROCESSING.
// All lines are planned before any is committed.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "start")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String())

	snapshot, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := snapshot.EnsureCanTransition(production.StatusProcessing); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	products, err := s.productsOf(ctx, snapshot)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	keys := []string{OrderKey(id)}
	for _, m := range snapshot.Materials {
		keys = append(keys, inventoryapp.StockKey(m.SourceWarehouse(s.roles), m.ProductID))
	}

	var (
		order *production.ProductionOrder
		tx    *inventory.StockTransaction
	)
	err = s.engine.Run(ctx, "production_start", keys, func(u *inventoryapp.Unit) error {
		var err error
		order, err = u.Repos().ProductionOrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.EnsureCanTransition(production.StatusProcessing); err != nil {
			return err
		}

		now := s.engine.Now()
		demands := make([]inventoryapp.Demand, len(order.Materials))
		for i, m := range order.Materials {
			demands[i] = inventoryapp.Demand{
				WarehouseID: m.SourceWarehouse(s.roles),
				ProductID:   m.ProductID,
				Quantity:    m.Quantity,
			}
		}
		pending, err := s.engine.Allocator.PlanAll(ctx, u, demands, now)
		if err != nil {
			return err
		}

		tx = inventory.NewStockTransaction(inventory.TransactionProductionConsume, now)
		tx.ReferenceID = &order.ID
		tx.Note = order.OrderNumber
		for _, p := range pending {
			if err := s.engine.Allocator.Commit(ctx, u, p); err != nil {
				return err
			}
			plan := p.Plan
			if _, err := s.engine.Ledger.Adjust(ctx, u, plan.WarehouseID, plan.ProductID, plan.Total().Neg()); err != nil {
				return err
			}
			tx.RecordOut(plan)
			tx.AddTotals(plan.Total(), unitWeight(products, plan.ProductID))
			u.Collect(inventory.NewStockAllocatedEvent(tx, plan))
		}

		if err := order.Start(now); err != nil {
			return err
		}
		if err := u.Repos().ProductionOrderRepo().Save(ctx, order); err != nil {
			return err
		}
		if len(pending) > 0 {
			if err := u.Repos().TransactionRepo().Create(ctx, tx); err != nil {
				return fmt.Errorf("save consumption transaction: %w", err)
			}
		}
		u.CollectFrom(order)
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			s.engine.Metrics().RecordAllocationFailure(ctx, "production")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.engine.Metrics().RecordAllocation(ctx, "production")
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderStatus, order.Status.String())
	s.logger.Info("production started",
		zap.String("order_id", order.ID.String()),
		zap.Int("materials", len(order.Materials)),
		zap.String("consumed", tx.TotalQuantity.String()),
	)
	resp := ToOrderResponse(order, s.roles)
	if len(tx.Movements) > 0 {
		resp.TransactionID = &tx.ID
	}
	return &resp, nil
}

// Cancel abandons a PENDING order
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "cancel")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String())

	var order *production.ProductionOrder
	err := s.engine.Run(ctx, "production_cancel", []string{OrderKey(id)}, func(u *inventoryapp.Unit) error {
		var err error
		order, err = u.Repos().ProductionOrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.Cancel(req.Reason, s.engine.Now()); err != nil {
			return err
		}
		if err := u.Repos().ProductionOrderRepo().Save(ctx, order); err != nil {
			return err
		}
		u.CollectFrom(order)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("production order cancelled", zap.String("order_id", order.ID.String()))
	resp := ToOrderResponse(order, s.roles)
	return &resp, nil
}

// Finish mints one BATCH-PROD batch per output line that produced anything
// and moves the order to FINISHED.
func (s *Service) Finish(ctx context.Context, id uuid.UUID, req FinishOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "finish")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String())

	actuals := make(map[uuid.UUID]decimal.Decimal, len(req.Actuals))
	for _, a := range req.Actuals {
		actuals[a.LineID] = a.Quantity
	}

	snapshot, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := snapshot.EnsureCanTransition(production.StatusFinished); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	products, err := s.productsOf(ctx, snapshot)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	keys := []string{OrderKey(id), inventoryapp.BatchCodeKey(inventory.PrefixProduction)}
	for _, l := range snapshot.Outputs {
		keys = append(keys, inventoryapp.StockKey(l.DestinationWarehouse(s.roles), l.ProductID))
	}

	var (
		order  *production.ProductionOrder
		tx     *inventory.StockTransaction
		minted int
	)
	err = s.engine.Run(ctx, "production_finish", keys, func(u *inventoryapp.Unit) error {
		var err error
		order, err = u.Repos().ProductionOrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.EnsureCanTransition(production.StatusFinished); err != nil {
			return err
		}
		if err := order.ApplyActuals(actuals); err != nil {
			return err
		}

		now := s.engine.Now()
		tx = inventory.NewStockTransaction(inventory.TransactionProductionOutput, now)
		tx.ReferenceID = &order.ID
		tx.Note = order.OrderNumber
		minted = 0
		for i := range order.Outputs {
			line := &order.Outputs[i]
			if !line.ProducedQuantity.IsPositive() {
				continue
			}
			batch, err := s.engine.Minter.Mint(ctx, u, inventoryapp.MintSpec{
				WarehouseID: line.DestinationWarehouse(s.roles),
				ProductID:   line.ProductID,
				Prefix:      inventory.PrefixProduction,
				Quantity:    line.ProducedQuantity,
				ImportDate:  now,
				SourceType:  inventory.SourceProduction,
				SourceID:    &order.ID,
				Note:        order.OrderNumber,
			})
			if err != nil {
				return err
			}
			line.BatchID = &batch.ID
			tx.RecordIn(batch)
			tx.AddTotals(line.ProducedQuantity, unitWeight(products, line.ProductID))
			minted++
		}

		if err := order.Finish(now); err != nil {
			return err
		}
		if err := u.Repos().ProductionOrderRepo().Save(ctx, order); err != nil {
			return err
		}
		if minted > 0 {
			if err := u.Repos().TransactionRepo().Create(ctx, tx); err != nil {
				return fmt.Errorf("save output transaction: %w", err)
			}
		}
		u.CollectFrom(order)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.engine.Metrics().RecordBatchesMinted(ctx, string(inventory.SourceProduction), minted)
	s.logger.Info("production finished",
		zap.String("order_id", order.ID.String()),
		zap.Int("batches", minted),
		zap.String("produced", order.TotalProduced().String()),
	)
	resp := ToOrderResponse(order, s.roles)
	if minted > 0 {
		resp.TransactionID = &tx.ID
	}
	return &resp, nil
}

func (s *Service) checkCatalog(ctx context.Context, order *production.ProductionOrder) error {
	warehouses := map[uuid.UUID]struct{}{}
	for _, m := range order.Materials {
		if m.WarehouseID != nil {
			warehouses[*m.WarehouseID] = struct{}{}
		}
	}
	for _, o := range order.Outputs {
		if o.WarehouseID != nil {
			warehouses[*o.WarehouseID] = struct{}{}
		}
	}
	for id := range warehouses {
		if _, err := s.warehouseRepo.FindByID(ctx, id); err != nil {
			return err
		}
	}
	_, err := s.productsOf(ctx, order)
	return err
}

func (s *Service) productsOf(ctx context.Context, order *production.ProductionOrder) (map[uuid.UUID]*catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(order.Materials)+len(order.Outputs))
	for _, m := range order.Materials {
		ids = append(ids, m.ProductID)
	}
	for _, o := range order.Outputs {
		ids = append(ids, o.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, shared.NewNotFoundError("product", id)
		}
	}
	return products, nil
}

func unitWeight(products map[uuid.UUID]*catalog.Product, id uuid.UUID) decimal.Decimal {
	if p, ok := products[id]; ok {
		return p.UnitWeight
	}
	return decimal.Zero
}
