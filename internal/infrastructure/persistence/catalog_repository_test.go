package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormWarehouseRepository_FindByID(t *testing.T) {
	t.Run("finds existing warehouse", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormWarehouseRepository(db)

		warehouseID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "code", "name", "created_at", "updated_at"}).
			AddRow(warehouseID, "RAW", "Raw materials", testDay, testDay)

		mock.ExpectQuery(`SELECT \* FROM "warehouses" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(warehouseID, 1).
			WillReturnRows(rows)

		w, err := repo.FindByID(context.Background(), warehouseID)
		require.NoError(t, err)
		assert.Equal(t, warehouseID, w.ID)
		assert.Equal(t, "RAW", w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns NOT_FOUND for non-existent warehouse", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormWarehouseRepository(db)

		warehouseID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "warehouses" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(warehouseID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		w, err := repo.FindByID(context.Background(), warehouseID)
		assert.Nil(t, w)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormWarehouseRepository_FindByCode(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormWarehouseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name"}).AddRow(uuid.New(), "FIN", "Finished goods")
	mock.ExpectQuery(`SELECT \* FROM "warehouses" WHERE code = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("FIN", 1).
		WillReturnRows(rows)

	w, err := repo.FindByCode(context.Background(), "fin")
	require.NoError(t, err)
	assert.Equal(t, "FIN", w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositories_SQLite(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	warehouses := NewGormWarehouseRepository(db)
	products := NewGormProductRepository(db)

	b, _ := catalog.NewWarehouse("B-WH", "Second")
	a, _ := catalog.NewWarehouse("A-WH", "First")
	require.NoError(t, warehouses.Create(ctx, b))
	require.NoError(t, warehouses.Create(ctx, a))

	all, err := warehouses.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A-WH", all[0].Code)

	dup, _ := catalog.NewWarehouse("a-wh", "Again")
	err = warehouses.Create(ctx, dup)
	assert.True(t, errors.Is(err, shared.ErrDuplicateCode))

	p1, _ := catalog.NewProduct("STEEL", "Steel sheet", "kg", decimal.NewFromInt(1))
	p2, _ := catalog.NewProduct("BOLT", "Bolt", "pcs", decimal.RequireFromString("0.05"))
	require.NoError(t, products.Create(ctx, p1))
	require.NoError(t, products.Create(ctx, p2))

	found, err := products.FindByIDs(ctx, []uuid.UUID{p1.ID, p2.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, found[p2.ID].UnitWeight.Equal(decimal.RequireFromString("0.05")))

	byCode, err := products.FindByCode(ctx, "steel")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, byCode.ID)

	_, err = products.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
