package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/production"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionOrderModel is the persistence model for the ProductionOrder aggregate root
type ProductionOrderModel struct {
	AggregateModel
	OrderNumber  string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Status       string `gorm:"type:varchar(20);not null;default:'PENDING';index;check:chk_production_orders_status,status IN ('PENDING','PROCESSING','FINISHED','CANCEL')"`
	StartDate    *time.Time
	EndDate      *time.Time
	Note         string              `gorm:"type:varchar(500)"`
	CancelReason string              `gorm:"type:varchar(500)"`
	Materials    []MaterialLineModel `gorm:"foreignKey:OrderID;references:ID"`
	Outputs      []OutputLineModel   `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ProductionOrderModel) TableName() string {
	return "production_orders"
}

// ToDomain converts the persistence model to a domain ProductionOrder
func (m *ProductionOrderModel) ToDomain() *production.ProductionOrder {
	order := &production.ProductionOrder{
		BaseAggregateRoot: m.AggregateModel.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		Status:            production.Status(m.Status),
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		Note:              m.Note,
		CancelReason:      m.CancelReason,
		Materials:         make([]production.MaterialLine, len(m.Materials)),
		Outputs:           make([]production.OutputLine, len(m.Outputs)),
	}
	for i, l := range m.Materials {
		order.Materials[i] = production.MaterialLine{
			ID:          l.ID,
			OrderID:     l.OrderID,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			WarehouseID: l.WarehouseID,
		}
	}
	for i, l := range m.Outputs {
		order.Outputs[i] = production.OutputLine{
			ID:               l.ID,
			OrderID:          l.OrderID,
			ProductID:        l.ProductID,
			PlannedQuantity:  l.PlannedQuantity,
			ProducedQuantity: l.ProducedQuantity,
			WarehouseID:      l.WarehouseID,
			BatchID:          l.BatchID,
		}
	}
	return order
}

// ProductionOrderModelFromDomain creates a new persistence model from a
// domain ProductionOrder, including its lines
func ProductionOrderModelFromDomain(o *production.ProductionOrder) *ProductionOrderModel {
	m := &ProductionOrderModel{
		OrderNumber:  o.OrderNumber,
		Status:       o.Status.String(),
		StartDate:    utcPtr(o.StartDate),
		EndDate:      utcPtr(o.EndDate),
		Note:         o.Note,
		CancelReason: o.CancelReason,
		Materials:    make([]MaterialLineModel, len(o.Materials)),
		Outputs:      make([]OutputLineModel, len(o.Outputs)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i, l := range o.Materials {
		m.Materials[i] = MaterialLineModel{
			ID:          l.ID,
			OrderID:     o.ID,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			WarehouseID: l.WarehouseID,
			Seq:         i,
		}
	}
	for i, l := range o.Outputs {
		m.Outputs[i] = OutputLineModel{
			ID:               l.ID,
			OrderID:          o.ID,
			ProductID:        l.ProductID,
			PlannedQuantity:  l.PlannedQuantity,
			ProducedQuantity: l.ProducedQuantity,
			WarehouseID:      l.WarehouseID,
			BatchID:          l.BatchID,
			Seq:              i,
		}
	}
	return m
}

// MaterialLineModel is a raw material line of a production order
type MaterialLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	WarehouseID *uuid.UUID      `gorm:"type:uuid"`
	Seq         int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (MaterialLineModel) TableName() string {
	return "production_order_materials"
}

// OutputLineModel is a finished product line of a production order
type OutputLineModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	PlannedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ProducedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WarehouseID      *uuid.UUID      `gorm:"type:uuid"`
	BatchID          *uuid.UUID      `gorm:"type:uuid"`
	Seq              int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OutputLineModel) TableName() string {
	return "production_order_outputs"
}
