package inventory

import (
	"context"
	"sort"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/production"
	"github.com/google/uuid"
)

// StockKey names the (warehouse, product) pair a unit of work touches
func StockKey(warehouseID, productID uuid.UUID) string {
	return "stock:" + warehouseID.String() + ":" + productID.String()
}

// BatchCodeKey names the code sequence of a batch prefix
func BatchCodeKey(prefix string) string {
	return "batch-code:" + prefix
}

// NormalizeKeys returns keys de-duplicated and sorted. Every holder acquires
// in this order, so overlapping key sets cannot deadlock.
func NormalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyLocker serializes units of work that share a key.
type KeyLocker interface {
	// Acquire blocks until every key is held or ctx is done. The returned
	// release function must be called exactly once.
	Acquire(ctx context.Context, keys []string) (release func(), err error)
}

// TransactionScope runs a unit of work atomically while holding the given
// keys. Keys are acquired before the transaction starts and released after it
// commits or rolls back; any error returned by fn rolls everything back.
type TransactionScope interface {
	Execute(ctx context.Context, keys []string, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to the current
// transaction. BatchRepo and RecordRepo are only written through the
// Allocator, Ledger and Minter.
type TransactionalRepositories interface {
	BatchRepo() inventory.StockBatchRepository
	RecordRepo() inventory.InventoryRecordRepository
	TransactionRepo() inventory.StockTransactionRepository
	ProductionOrderRepo() production.ProductionOrderRepository
}
