package catalog

import (
	"context"

	"github.com/google/uuid"
)

// WarehouseRepository resolves warehouses by ID or code.
// Create exists for provisioning and tests; the engine never writes warehouses.
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindByCode(ctx context.Context, code string) (*Warehouse, error)
	FindAll(ctx context.Context) ([]*Warehouse, error)
	Create(ctx context.Context, w *Warehouse) error
}

// ProductRepository resolves products by ID or code
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	FindByCode(ctx context.Context, code string) (*Product, error)
	Create(ctx context.Context, p *Product) error
}
