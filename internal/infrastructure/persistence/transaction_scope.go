package persistence

import (
	"context"
	"fmt"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/production"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Keys are taken from the KeyLocker before the transaction opens; on
// PostgreSQL each key is also taken as a transaction-scoped advisory lock so
// that instances sharing the database but not the locker still serialize.
type GormTransactionScope struct {
	db     *gorm.DB
	locker appinv.KeyLocker
}

// NewGormTransactionScope creates a new GormTransactionScope. A nil locker
// leaves serialization to the database locks alone.
func NewGormTransactionScope(db *gorm.DB, locker appinv.KeyLocker) *GormTransactionScope {
	return &GormTransactionScope{db: db, locker: locker}
}

// Execute runs fn within a database transaction while holding keys.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, keys []string, fn func(repos appinv.TransactionalRepositories) error) error {
	keys = appinv.NormalizeKeys(keys)

	if s.locker != nil && len(keys) > 0 {
		release, err := s.locker.Acquire(ctx, keys)
		if err != nil {
			return err
		}
		defer release()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) {
			for _, key := range keys {
				if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
					return fmt.Errorf("advisory lock %q: %w", key, err)
				}
			}
		}
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the stock batch repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BatchRepo() inventory.StockBatchRepository {
	return NewGormStockBatchRepository(r.tx)
}

// RecordRepo returns the ledger record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RecordRepo() inventory.InventoryRecordRepository {
	return NewGormInventoryRecordRepository(r.tx)
}

// TransactionRepo returns the stock transaction repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransactionRepo() inventory.StockTransactionRepository {
	return NewGormStockTransactionRepository(r.tx)
}

// ProductionOrderRepo returns the production order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ProductionOrderRepo() production.ProductionOrderRepository {
	return NewGormProductionOrderRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
