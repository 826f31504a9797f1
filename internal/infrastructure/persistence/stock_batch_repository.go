package persistence

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStockBatchRepository implements StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// FindByID finds a stock batch by its ID
func (r *GormStockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockBatch, error) {
	var model models.StockBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "stock batch", id)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a stock batch by its globally unique code
func (r *GormStockBatchRepository) FindByCode(ctx context.Context, code string) (*inventory.StockBatch, error) {
	var model models.StockBatchModel
	if err := r.db.WithContext(ctx).Where("batch_code = ?", code).First(&model).Error; err != nil {
		return nil, notFound(err, "stock batch", code)
	}
	return model.ToDomain(), nil
}

// List returns one page of batches matching filter and the total match count
func (r *GormStockBatchRepository) List(ctx context.Context, filter inventory.BatchFilter) ([]*inventory.StockBatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockBatchModel{})
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.CodePrefix != "" {
		query = query.Where(`batch_code LIKE ? ESCAPE '\'`, escapeLike(filter.CodePrefix)+"%")
	}
	if !filter.IncludeEmpty {
		query = query.Where("quantity_in > quantity_out")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, StockBatchSortFields, "import_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir).Order("id " + orderDir)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.StockBatchModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toBatches(rows), total, nil
}

// FindAvailableForUpdate returns the active batches of a pair that still have
// stock in FIFO order (import date, then ID), locking them
func (r *GormStockBatchRepository) FindAvailableForUpdate(ctx context.Context, warehouseID, productID uuid.UUID) ([]*inventory.StockBatch, error) {
	var rows []models.StockBatchModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		Where("status = ? AND quantity_in > quantity_out", string(inventory.BatchStatusActive)).
		Order("import_date ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatches(rows), nil
}

// FindExpiredForUpdate returns up to limit active batches with stock left
// whose expiry is on or before asOf, grouped by pair, locking them
func (r *GormStockBatchRepository) FindExpiredForUpdate(ctx context.Context, asOf time.Time, limit int) ([]*inventory.StockBatch, error) {
	query := forUpdate(r.db.WithContext(ctx)).
		Where("status = ? AND quantity_in > quantity_out", string(inventory.BatchStatusActive)).
		Where("expire_date IS NOT NULL AND expire_date <= ?", asOf.UTC()).
		Order("warehouse_id ASC").
		Order("product_id ASC").
		Order("import_date ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.StockBatchModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatches(rows), nil
}

// ExistsByCode checks whether a batch code is taken
func (r *GormStockBatchRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Where("batch_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MaxCodeSuffix returns the largest numeric suffix among codes that are
// prefix followed only by digits, or 0 when there are none. Candidates are
// narrowed with LIKE and checked here, since LIKE may ignore case.
func (r *GormStockBatchRepository) MaxCodeSuffix(ctx context.Context, prefix string) (int, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Where(`batch_code LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Pluck("batch_code", &codes).Error; err != nil {
		return 0, err
	}

	maxSuffix := 0
	for _, code := range codes {
		if n, ok := inventory.ParseBatchCodeSuffix(prefix, code); ok && n > maxSuffix {
			maxSuffix = n
		}
	}
	return maxSuffix, nil
}

// Create inserts a newly minted batch. A code collision surfaces as DUPLICATE_CODE.
func (r *GormStockBatchRepository) Create(ctx context.Context, batch *inventory.StockBatch) error {
	model := models.StockBatchModelFromDomain(batch)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeDuplicateCode, "batch code "+batch.BatchCode+" already exists").
				WithDetail("batch_code", batch.BatchCode)
		}
		return err
	}
	return nil
}

// SaveConsumption writes quantity_out, status and updated_at of each batch
func (r *GormStockBatchRepository) SaveConsumption(ctx context.Context, batches []*inventory.StockBatch) error {
	for _, b := range batches {
		result := r.db.WithContext(ctx).
			Model(&models.StockBatchModel{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{
				"quantity_out": b.QuantityOut,
				"status":       string(b.Status),
				"updated_at":   b.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("stock batch", b.ID)
		}
	}
	return nil
}

// SumRemaining totals the remaining stock of active batches per pair
func (r *GormStockBatchRepository) SumRemaining(ctx context.Context, warehouseID *uuid.UUID) ([]inventory.PairQuantity, error) {
	type row struct {
		WarehouseID uuid.UUID
		ProductID   uuid.UUID
		Quantity    decimal.Decimal
	}

	query := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Select("warehouse_id, product_id, SUM(quantity_in - quantity_out) AS quantity").
		Where("status = ?", string(inventory.BatchStatusActive))
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var rows []row
	if err := query.Group("warehouse_id, product_id").
		Order("warehouse_id, product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]inventory.PairQuantity, len(rows))
	for i, rw := range rows {
		out[i] = inventory.PairQuantity{
			WarehouseID: rw.WarehouseID,
			ProductID:   rw.ProductID,
			Quantity:    rw.Quantity,
		}
	}
	return out, nil
}

func toBatches(rows []models.StockBatchModel) []*inventory.StockBatch {
	out := make([]*inventory.StockBatch, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ inventory.StockBatchRepository = (*GormStockBatchRepository)(nil)
