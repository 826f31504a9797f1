package persistence

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductionOrderRepository implements ProductionOrderRepository using GORM
type GormProductionOrderRepository struct {
	db *gorm.DB
}

// NewGormProductionOrderRepository creates a new GormProductionOrderRepository
func NewGormProductionOrderRepository(db *gorm.DB) *GormProductionOrderRepository {
	return &GormProductionOrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	bySeq := func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }
	return db.Preload("Materials", bySeq).Preload("Outputs", bySeq)
}

// FindByID loads an order with its lines
func (r *GormProductionOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	var model models.ProductionOrderModel
	if err := preloadLines(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "production order", id)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads an order with its lines and locks the order row
func (r *GormProductionOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	var model models.ProductionOrderModel
	if err := preloadLines(forUpdate(r.db.WithContext(ctx))).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "production order", id)
	}
	return model.ToDomain(), nil
}

// List returns one page of orders matching filter and the total match count
func (r *GormProductionOrderRepository) List(ctx context.Context, filter production.OrderFilter) ([]*production.ProductionOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductionOrderModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ProductionOrderSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir).Order("id " + orderDir)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ProductionOrderModel
	if err := preloadLines(query).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*production.ProductionOrder, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// ExistsByOrderNumber checks whether an order number is taken
func (r *GormProductionOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductionOrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MaxOrderNumberSuffix returns the highest counter among order numbers that
// are prefix followed only by digits
func (r *GormProductionOrderRepository) MaxOrderNumberSuffix(ctx context.Context, prefix string) (int, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.ProductionOrderModel{}).
		Where(`order_number LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Pluck("order_number", &numbers).Error; err != nil {
		return 0, err
	}

	maxSuffix := 0
	for _, n := range numbers {
		if c, ok := production.ParseOrderNumberSuffix(prefix, n); ok && c > maxSuffix {
			maxSuffix = c
		}
	}
	return maxSuffix, nil
}

// Create inserts an order and its lines
func (r *GormProductionOrderRepository) Create(ctx context.Context, order *production.ProductionOrder) error {
	model := models.ProductionOrderModelFromDomain(order)
	db := r.db.WithContext(ctx)

	if err := db.Omit("Materials", "Outputs").Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeDuplicateCode, "production order number "+order.OrderNumber+" already exists").
				WithDetail("order_number", order.OrderNumber)
		}
		return err
	}
	if len(model.Materials) > 0 {
		if err := db.Create(&model.Materials).Error; err != nil {
			return err
		}
	}
	if len(model.Outputs) > 0 {
		if err := db.Create(&model.Outputs).Error; err != nil {
			return err
		}
	}
	return nil
}

// Save writes status, dates and produced quantities of an existing order.
// Every transition bumps Version, so the stored row must still be at Version-1.
func (r *GormProductionOrderRepository) Save(ctx context.Context, order *production.ProductionOrder) error {
	db := r.db.WithContext(ctx)

	result := db.
		Model(&models.ProductionOrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version-1).
		Updates(map[string]any{
			"status":        order.Status.String(),
			"start_date":    utcPtr(order.StartDate),
			"end_date":      utcPtr(order.EndDate),
			"cancel_reason": order.CancelReason,
			"version":       order.Version,
			"updated_at":    order.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("production order %s was modified by another transaction", order.OrderNumber))
	}

	for _, l := range order.Outputs {
		if err := db.
			Model(&models.OutputLineModel{}).
			Where("id = ?", l.ID).
			Updates(map[string]any{
				"produced_quantity": l.ProducedQuantity,
				"batch_id":          l.BatchID,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormProductionOrderRepository implements ProductionOrderRepository
var _ production.ProductionOrderRepository = (*GormProductionOrderRepository)(nil)
