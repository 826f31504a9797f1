package importapp

import (
	"context"
	"strings"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// catalogCache resolves warehouse and product references given either as an
// ID or as a catalog code, remembering answers for the rest of the file.
type catalogCache struct {
	warehouseRepo catalog.WarehouseRepository
	productRepo   catalog.ProductRepository
	warehouses    map[string]uuid.UUID
	products      map[string]uuid.UUID
}

func newCatalogCache(w catalog.WarehouseRepository, p catalog.ProductRepository) *catalogCache {
	return &catalogCache{
		warehouseRepo: w,
		productRepo:   p,
		warehouses:    make(map[string]uuid.UUID),
		products:      make(map[string]uuid.UUID),
	}
}

func (c *catalogCache) warehouse(ctx context.Context, ref string) (uuid.UUID, error) {
	if ref == "" {
		return uuid.Nil, shared.NewValidationError("%s is required", ColWarehouseID)
	}
	if id, ok := c.warehouses[ref]; ok {
		return id, nil
	}

	var (
		w   *catalog.Warehouse
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		w, err = c.warehouseRepo.FindByID(ctx, id)
	} else {
		w, err = c.warehouseRepo.FindByCode(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return uuid.Nil, err
	}
	c.warehouses[ref] = w.ID
	return w.ID, nil
}

func (c *catalogCache) product(ctx context.Context, ref string) (uuid.UUID, error) {
	if ref == "" {
		return uuid.Nil, shared.NewValidationError("%s is required", ColProductID)
	}
	if id, ok := c.products[ref]; ok {
		return id, nil
	}

	var (
		p   *catalog.Product
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		p, err = c.productRepo.FindByID(ctx, id)
	} else {
		p, err = c.productRepo.FindByCode(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return uuid.Nil, err
	}
	c.products[ref] = p.ID
	return p.ID, nil
}
