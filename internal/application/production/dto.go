package production

import (
	"time"

	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialLineRequest is a raw material line of a new order
type MaterialLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	WarehouseID *uuid.UUID      `json:"warehouse_id"`
}

// OutputLineRequest is a finished product line of a new order
type OutputLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,decimal_gt0"`
	WarehouseID *uuid.UUID      `json:"warehouse_id"`
}

// CreateOrderRequest creates a PENDING production order
type CreateOrderRequest struct {
	OrderNumber string                `json:"order_number" binding:"max=50"`
	Materials   []MaterialLineRequest `json:"materials" binding:"dive"`
	Outputs     []OutputLineRequest   `json:"outputs" binding:"required,min=1,dive"`
	Note        string                `json:"note" binding:"max=500"`
}

// ActualOutput overrides the planned quantity of one output line
type ActualOutput struct {
	LineID   uuid.UUID       `json:"line_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// FinishOrderRequest carries the produced quantities. Lines not listed
// produce their planned quantity.
type FinishOrderRequest struct {
	Actuals []ActualOutput `json:"actuals" binding:"dive"`
}

// CancelOrderRequest carries an optional reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MaterialLineResponse is a material line in API responses
type MaterialLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
}

// OutputLineResponse is an output line in API responses
type OutputLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	PlannedQuantity  decimal.Decimal `json:"planned_quantity"`
	ProducedQuantity decimal.Decimal `json:"produced_quantity"`
	WarehouseID      uuid.UUID       `json:"warehouse_id"`
	BatchID          *uuid.UUID      `json:"batch_id,omitempty"`
}

// OrderResponse is a production order in API responses
type OrderResponse struct {
	ID            uuid.UUID              `json:"id"`
	OrderNumber   string                 `json:"order_number"`
	Status        string                 `json:"status"`
	StartDate     *time.Time             `json:"start_date,omitempty"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
	Note          string                 `json:"note,omitempty"`
	CancelReason  string                 `json:"cancel_reason,omitempty"`
	Materials     []MaterialLineResponse `json:"materials"`
	Outputs       []OutputLineResponse   `json:"outputs"`
	TransactionID *uuid.UUID             `json:"transaction_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Version       int                    `json:"version"`
}

func (f OrderListFilter) toDomain() (production.OrderFilter, error) {
	filter := production.OrderFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
		}.Normalize(),
	}
	if f.Status != "" {
		status, err := production.ParseStatus(f.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	return filter, nil
}

// ToOrderResponse converts an order to a response, resolving role warehouses
func ToOrderResponse(o *production.ProductionOrder, roles production.WarehouseRoles) OrderResponse {
	materials := make([]MaterialLineResponse, len(o.Materials))
	for i, m := range o.Materials {
		materials[i] = MaterialLineResponse{
			ID:          m.ID,
			ProductID:   m.ProductID,
			Quantity:    m.Quantity,
			WarehouseID: m.SourceWarehouse(roles),
		}
	}
	outputs := make([]OutputLineResponse, len(o.Outputs))
	for i, l := range o.Outputs {
		outputs[i] = OutputLineResponse{
			ID:               l.ID,
			ProductID:        l.ProductID,
			PlannedQuantity:  l.PlannedQuantity,
			ProducedQuantity: l.ProducedQuantity,
			WarehouseID:      l.DestinationWarehouse(roles),
			BatchID:          l.BatchID,
		}
	}
	return OrderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       o.Status.String(),
		StartDate:    o.StartDate,
		EndDate:      o.EndDate,
		Note:         o.Note,
		CancelReason: o.CancelReason,
		Materials:    materials,
		Outputs:      outputs,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Version:      o.Version,
	}
}
