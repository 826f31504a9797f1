package persistence

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryRecordRepository implements InventoryRecordRepository using GORM
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GormInventoryRecordRepository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

// FindByKey finds the ledger record of a (warehouse, product) pair
func (r *GormInventoryRecordRepository) FindByKey(ctx context.Context, warehouseID, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	return r.findByKey(r.db.WithContext(ctx), warehouseID, productID)
}

// FindByKeyForUpdate finds and locks the ledger record of a pair
func (r *GormInventoryRecordRepository) FindByKeyForUpdate(ctx context.Context, warehouseID, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	return r.findByKey(forUpdate(r.db.WithContext(ctx)), warehouseID, productID)
}

func (r *GormInventoryRecordRepository) findByKey(db *gorm.DB, warehouseID, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	var model models.InventoryRecordModel
	if err := db.
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&model).Error; err != nil {
		return nil, notFound(err, "inventory record", fmt.Sprintf("%s/%s", warehouseID, productID))
	}
	return model.ToDomain(), nil
}

// List returns one page of ledger records matching filter and the total match count
func (r *GormInventoryRecordRepository) List(ctx context.Context, filter inventory.RecordFilter) ([]*inventory.InventoryRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryRecordModel{})
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.NonZeroOnly {
		query = query.Where("quantity > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, InventoryRecordSortFields, "warehouse_id")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir).Order("id ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.InventoryRecordModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*inventory.InventoryRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts the record of a pair seen for the first time
func (r *GormInventoryRecordRepository) Create(ctx context.Context, rec *inventory.InventoryRecord) error {
	model := models.InventoryRecordModelFromDomain(rec)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeConcurrencyConflict,
				fmt.Sprintf("inventory record for warehouse %s product %s was created concurrently", rec.WarehouseID, rec.ProductID))
		}
		return err
	}
	return nil
}

// Save persists an adjusted record with optimistic locking. The domain bumps
// Version on each adjustment, so the stored row must still be at Version-1.
func (r *GormInventoryRecordRepository) Save(ctx context.Context, rec *inventory.InventoryRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecordModel{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version-1).
		Updates(map[string]any{
			"quantity":     rec.Quantity,
			"last_updated": rec.LastUpdated.UTC(),
			"version":      rec.Version,
			"updated_at":   rec.UpdatedAt.UTC(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("inventory record %s was modified by another transaction", rec.ID))
	}
	return nil
}

// Ensure GormInventoryRecordRepository implements InventoryRecordRepository
var _ inventory.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)
