package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB returns a PostgreSQL-dialect gorm.DB over sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

// newSQLiteDB returns a migrated private in-memory database
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

var testDay = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func mustBatch(t *testing.T, warehouseID, productID uuid.UUID, code string, qty string, imported time.Time, expires *time.Time) *inventory.StockBatch {
	t.Helper()
	b, err := inventory.NewStockBatch(inventory.BatchSpec{
		WarehouseID: warehouseID,
		ProductID:   productID,
		BatchCode:   code,
		Quantity:    dec(qty),
		ImportDate:  imported,
		ExpireDate:  expires,
		SourceType:  inventory.SourceReceipt,
	})
	require.NoError(t, err)
	return b
}
