package production

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows production order listings
type OrderFilter struct {
	shared.Filter
	Status Status
}

// ProductionOrderRepository persists production orders with their lines
type ProductionOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionOrder, error)

	// FindByIDForUpdate loads and locks the order row for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ProductionOrder, error)

	List(ctx context.Context, filter OrderFilter) ([]*ProductionOrder, int64, error)
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// MaxOrderNumberSuffix returns the highest counter among numbers generated
	// under prefix, or 0 when there are none
	MaxOrderNumberSuffix(ctx context.Context, prefix string) (int, error)
	Create(ctx context.Context, order *ProductionOrder) error

	// Save writes status, dates and produced quantities of an existing order
	Save(ctx context.Context, order *ProductionOrder) error
}
