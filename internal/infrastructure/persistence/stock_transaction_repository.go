package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// movementInsertBatchSize bounds the rows per INSERT when writing movements
const movementInsertBatchSize = 200

// GormStockTransactionRepository implements StockTransactionRepository using GORM
type GormStockTransactionRepository struct {
	db *gorm.DB
}

// NewGormStockTransactionRepository creates a new GormStockTransactionRepository
func NewGormStockTransactionRepository(db *gorm.DB) *GormStockTransactionRepository {
	return &GormStockTransactionRepository{db: db}
}

// Create writes the transaction header and all of its movements
func (r *GormStockTransactionRepository) Create(ctx context.Context, tx *inventory.StockTransaction) error {
	model := models.StockTransactionModelFromDomain(tx)
	db := r.db.WithContext(ctx)
	if err := db.Omit("Movements").Create(model).Error; err != nil {
		return err
	}
	if len(model.Movements) == 0 {
		return nil
	}
	return db.CreateInBatches(model.Movements, movementInsertBatchSize).Error
}

// FindByID loads a transaction with its movements in recorded order
func (r *GormStockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockTransaction, error) {
	var model models.StockTransactionModel
	if err := r.db.WithContext(ctx).
		Preload("Movements", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "stock transaction", id)
	}
	return model.ToDomain(), nil
}

// Exists checks whether a transaction header with id exists
func (r *GormStockTransactionRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StockTransactionModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormStockTransactionRepository implements StockTransactionRepository
var _ inventory.StockTransactionRepository = (*GormStockTransactionRepository)(nil)
