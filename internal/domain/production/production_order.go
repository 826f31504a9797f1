package production

import (
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeProductionOrder is the aggregate type name used in events
const AggregateTypeProductionOrder = "ProductionOrder"

// WarehouseRoles maps the named warehouse roles a production order relies on
// to concrete warehouses. Lines without an explicit warehouse use these.
type WarehouseRoles struct {
	RawMaterial   uuid.UUID
	FinishedGoods uuid.UUID
}

// Validate ensures both roles are configured
func (r WarehouseRoles) Validate() error {
	if r.RawMaterial == uuid.Nil {
		return shared.NewValidationError("raw material warehouse role is not configured")
	}
	if r.FinishedGoods == uuid.Nil {
		return shared.NewValidationError("finished goods warehouse role is not configured")
	}
	return nil
}

// MaterialLine is a raw material consumed when production starts
type MaterialLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	WarehouseID *uuid.UUID
}

// SourceWarehouse returns the line's warehouse or the raw material role
func (l MaterialLine) SourceWarehouse(roles WarehouseRoles) uuid.UUID {
	if l.WarehouseID != nil && *l.WarehouseID != uuid.Nil {
		return *l.WarehouseID
	}
	return roles.RawMaterial
}

// OutputLine is a finished product minted when production finishes
type OutputLine struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ProductID        uuid.UUID
	PlannedQuantity  decimal.Decimal
	ProducedQuantity decimal.Decimal
	WarehouseID      *uuid.UUID
	BatchID          *uuid.UUID
}

// DestinationWarehouse returns the line's warehouse or the finished goods role
func (l OutputLine) DestinationWarehouse(roles WarehouseRoles) uuid.UUID {
	if l.WarehouseID != nil && *l.WarehouseID != uuid.Nil {
		return *l.WarehouseID
	}
	return roles.FinishedGoods
}

// ProductionOrder turns raw materials into finished products
type ProductionOrder struct {
	shared.BaseAggregateRoot
	OrderNumber  string
	Status       Status
	StartDate    *time.Time
	EndDate      *time.Time
	Materials    []MaterialLine
	Outputs      []OutputLine
	Note         string
	CancelReason string
}

// MaterialInput describes a material line when creating an order
type MaterialInput struct {
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	WarehouseID *uuid.UUID
}

// OutputInput describes an output line when creating an order
type OutputInput struct {
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	WarehouseID *uuid.UUID
}

// NewProductionOrder creates a PENDING order. An empty orderNumber leaves the
// order unnumbered until AssignNumber is called.
func NewProductionOrder(orderNumber string, materials []MaterialInput, outputs []OutputInput, note string, now time.Time) (*ProductionOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if len(orderNumber) > 50 {
		return nil, shared.NewValidationError("order number cannot exceed 50 characters")
	}
	if len(outputs) == 0 {
		return nil, shared.NewValidationError("production order needs at least one output line")
	}

	order := &ProductionOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		OrderNumber:       orderNumber,
		Status:            StatusPending,
		Note:              note,
	}

	for i, m := range materials {
		if m.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("material line %d: product id is required", i+1)
		}
		if !m.Quantity.IsPositive() {
			return nil, shared.NewValidationError("material line %d: quantity must be positive", i+1)
		}
		order.Materials = append(order.Materials, MaterialLine{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   m.ProductID,
			Quantity:    m.Quantity,
			WarehouseID: m.WarehouseID,
		})
	}
	for i, o := range outputs {
		if o.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("output line %d: product id is required", i+1)
		}
		if o.Quantity.IsNegative() {
			return nil, shared.NewValidationError("output line %d: quantity cannot be negative", i+1)
		}
		order.Outputs = append(order.Outputs, OutputLine{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       o.ProductID,
			PlannedQuantity: o.Quantity,
			WarehouseID:     o.WarehouseID,
		})
	}

	if order.OrderNumber != "" {
		order.AddDomainEvent(NewProductionOrderCreatedEvent(order))
	}
	return order, nil
}

// AssignNumber gives an unnumbered order its number and raises the created
// event that NewProductionOrder held back
func (o *ProductionOrder) AssignNumber(number string) error {
	if o.OrderNumber != "" {
		return shared.NewValidationError("order %s already has a number", o.OrderNumber)
	}
	number = strings.TrimSpace(number)
	if number == "" || len(number) > 50 {
		return shared.NewValidationError("order number must be 1 to 50 characters")
	}
	o.OrderNumber = number
	o.AddDomainEvent(NewProductionOrderCreatedEvent(o))
	return nil
}

// EnsureCanTransition fails with INVALID_STATE_TRANSITION if target is not
// reachable. Callers check this before touching any stock.
func (o *ProductionOrder) EnsureCanTransition(target Status) error {
	return o.Status.checkTransition(target)
}

// Start marks materials as consumed and moves the order to PROCESSING
func (o *ProductionOrder) Start(now time.Time) error {
	if err := o.EnsureCanTransition(StatusProcessing); err != nil {
		return err
	}
	o.Status = StatusProcessing
	o.StartDate = &now
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewProductionStartedEvent(o))
	return nil
}

// Cancel abandons a PENDING order. It has no stock effect and leaves the
// start and end dates unset.
func (o *ProductionOrder) Cancel(reason string, now time.Time) error {
	if err := o.EnsureCanTransition(StatusCancel); err != nil {
		return err
	}
	o.Status = StatusCancel
	o.CancelReason = reason
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewProductionCancelledEvent(o))
	return nil
}

// ApplyActuals sets the produced quantity of each output line. Lines missing
// from actuals produce their planned quantity. An actual at or below zero
// produces nothing, so Finish skips that line. Unknown line IDs are rejected.
func (o *ProductionOrder) ApplyActuals(actuals map[uuid.UUID]decimal.Decimal) error {
	known := make(map[uuid.UUID]bool, len(o.Outputs))
	for _, l := range o.Outputs {
		known[l.ID] = true
	}
	for id := range actuals {
		if !known[id] {
			return shared.NewValidationError("output line %s does not belong to order %s", id, o.OrderNumber)
		}
	}

	for i := range o.Outputs {
		line := &o.Outputs[i]
		if q, ok := actuals[line.ID]; ok {
			line.ProducedQuantity = decimal.Max(q, decimal.Zero)
		} else {
			line.ProducedQuantity = line.PlannedQuantity
		}
	}
	return nil
}

// Finish moves a PROCESSING order to FINISHED
func (o *ProductionOrder) Finish(now time.Time) error {
	if err := o.EnsureCanTransition(StatusFinished); err != nil {
		return err
	}
	o.Status = StatusFinished
	o.EndDate = &now
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewProductionFinishedEvent(o))
	return nil
}

// TotalProduced sums the produced quantity over lines that produced anything
func (o *ProductionOrder) TotalProduced() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Outputs {
		if l.ProducedQuantity.IsPositive() {
			total = total.Add(l.ProducedQuantity)
		}
	}
	return total
}
