package production

import (
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeProductionOrderCreated = "ProductionOrderCreated"
	EventTypeProductionStarted      = "ProductionStarted"
	EventTypeProductionFinished     = "ProductionFinished"
	EventTypeProductionCancelled    = "ProductionCancelled"
)

// ProductionOrderCreatedEvent is raised when an order is registered
type ProductionOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewProductionOrderCreatedEvent creates a new ProductionOrderCreatedEvent
func NewProductionOrderCreatedEvent(o *ProductionOrder) *ProductionOrderCreatedEvent {
	return &ProductionOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductionOrderCreated, AggregateTypeProductionOrder, o.ID, o.CreatedAt),
		OrderNumber:     o.OrderNumber,
	}
}

// ProductionStartedEvent is raised after materials have been consumed
type ProductionStartedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string `json:"order_number"`
	MaterialCount int    `json:"material_count"`
}

// NewProductionStartedEvent creates a new ProductionStartedEvent
func NewProductionStartedEvent(o *ProductionOrder) *ProductionStartedEvent {
	return &ProductionStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductionStarted, AggregateTypeProductionOrder, o.ID, o.UpdatedAt),
		OrderNumber:     o.OrderNumber,
		MaterialCount:   len(o.Materials),
	}
}

// ProductionFinishedEvent is raised after finished goods have been minted
type ProductionFinishedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string          `json:"order_number"`
	TotalProduced decimal.Decimal `json:"total_produced"`
	BatchIDs      []uuid.UUID     `json:"batch_ids"`
}

// NewProductionFinishedEvent creates a new ProductionFinishedEvent
func NewProductionFinishedEvent(o *ProductionOrder) *ProductionFinishedEvent {
	ids := make([]uuid.UUID, 0, len(o.Outputs))
	for _, l := range o.Outputs {
		if l.BatchID != nil {
			ids = append(ids, *l.BatchID)
		}
	}
	return &ProductionFinishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductionFinished, AggregateTypeProductionOrder, o.ID, o.UpdatedAt),
		OrderNumber:     o.OrderNumber,
		TotalProduced:   o.TotalProduced(),
		BatchIDs:        ids,
	}
}

// ProductionCancelledEvent is raised when a pending order is abandoned
type ProductionCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

// NewProductionCancelledEvent creates a new ProductionCancelledEvent
func NewProductionCancelledEvent(o *ProductionOrder) *ProductionCancelledEvent {
	return &ProductionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductionCancelled, AggregateTypeProductionOrder, o.ID, o.UpdatedAt),
		OrderNumber:     o.OrderNumber,
		Reason:          o.CancelReason,
	}
}
