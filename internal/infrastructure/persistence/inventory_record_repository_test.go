package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInventoryRecordRepository_Save(t *testing.T) {
	t.Run("successful save with correct version", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormInventoryRecordRepository(db)

		rec, err := inventory.OpenInventoryRecord(uuid.New(), uuid.New(), dec("5"), testDay)
		require.NoError(t, err)
		_, err = rec.Adjust(dec("3"), testDay.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, 2, rec.Version)

		mock.ExpectExec(`UPDATE "inventory_records" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Save(context.Background(), rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormInventoryRecordRepository(db)

		rec, err := inventory.OpenInventoryRecord(uuid.New(), uuid.New(), dec("5"), testDay)
		require.NoError(t, err)
		_, err = rec.Adjust(dec("-1"), testDay)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "inventory_records" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Save(context.Background(), rec)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRecordRepository_SQLite(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormInventoryRecordRepository(db)
	ctx := context.Background()

	w, p := uuid.New(), uuid.New()
	rec, err := inventory.OpenInventoryRecord(w, p, dec("12"), testDay)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, rec))

	t.Run("second record for the pair conflicts", func(t *testing.T) {
		again, err := inventory.OpenInventoryRecord(w, p, dec("1"), testDay)
		require.NoError(t, err)
		err = repo.Create(ctx, again)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("save then stale save", func(t *testing.T) {
		first, err := repo.FindByKeyForUpdate(ctx, w, p)
		require.NoError(t, err)
		stale, err := repo.FindByKey(ctx, w, p)
		require.NoError(t, err)

		_, err = first.Adjust(dec("-2"), testDay.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, first))

		_, err = stale.Adjust(dec("-1"), testDay.Add(time.Hour))
		require.NoError(t, err)
		err = repo.Save(ctx, stale)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

		got, err := repo.FindByKey(ctx, w, p)
		require.NoError(t, err)
		assert.True(t, got.Quantity.Equal(dec("10")))
		assert.Equal(t, 2, got.Version)
	})

	t.Run("missing pair is NOT_FOUND", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, w, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("list skips empty records when asked", func(t *testing.T) {
		empty, err := inventory.OpenInventoryRecord(w, uuid.New(), dec("1"), testDay)
		require.NoError(t, err)
		_, err = empty.Adjust(dec("-1"), testDay)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, empty))

		all, total, err := repo.List(ctx, inventory.RecordFilter{WarehouseID: &w})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, all, 2)

		nonZero, total, err := repo.List(ctx, inventory.RecordFilter{WarehouseID: &w, NonZeroOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, p, nonZero[0].ProductID)
	})
}
