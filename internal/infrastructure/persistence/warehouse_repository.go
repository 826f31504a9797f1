package persistence

import (
	"context"
	"strings"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "warehouse", id)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a warehouse by its code
func (r *GormWarehouseRepository) FindByCode(ctx context.Context, code string) (*catalog.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&model).Error; err != nil {
		return nil, notFound(err, "warehouse", code)
	}
	return model.ToDomain(), nil
}

// FindAll returns every warehouse ordered by code
func (r *GormWarehouseRepository) FindAll(ctx context.Context) ([]*catalog.Warehouse, error) {
	var rows []models.WarehouseModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*catalog.Warehouse, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a warehouse
func (r *GormWarehouseRepository) Create(ctx context.Context, w *catalog.Warehouse) error {
	if err := r.db.WithContext(ctx).Create(models.WarehouseModelFromDomain(w)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeDuplicateCode, "warehouse code "+w.Code+" already exists")
		}
		return err
	}
	return nil
}

// Ensure GormWarehouseRepository implements WarehouseRepository
var _ catalog.WarehouseRepository = (*GormWarehouseRepository)(nil)
