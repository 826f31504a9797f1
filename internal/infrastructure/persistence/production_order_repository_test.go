package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductionOrderRepository_SQLite(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormProductionOrderRepository(db)
	ctx := context.Background()

	steel, bolt, frame := uuid.New(), uuid.New(), uuid.New()
	order, err := production.NewProductionOrder("PO-1",
		[]production.MaterialInput{
			{ProductID: steel, Quantity: dec("3")},
			{ProductID: bolt, Quantity: dec("12")},
		},
		[]production.OutputInput{{ProductID: frame, Quantity: dec("2")}},
		"first run", testDay)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	t.Run("loads lines in order", func(t *testing.T) {
		got, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, production.StatusPending, got.Status)
		require.Len(t, got.Materials, 2)
		assert.Equal(t, steel, got.Materials[0].ProductID)
		assert.Equal(t, bolt, got.Materials[1].ProductID)
		require.Len(t, got.Outputs, 1)
		assert.True(t, got.Outputs[0].ProducedQuantity.IsZero())
	})

	t.Run("duplicate order number", func(t *testing.T) {
		dup, err := production.NewProductionOrder("PO-1", nil,
			[]production.OutputInput{{ProductID: frame, Quantity: dec("1")}}, "", testDay)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.True(t, errors.Is(err, shared.ErrDuplicateCode))
	})

	t.Run("save walks through the lifecycle", func(t *testing.T) {
		loaded, err := repo.FindByIDForUpdate(ctx, order.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Start(testDay.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, loaded))

		require.NoError(t, loaded.ApplyActuals(map[uuid.UUID]decimal.Decimal{loaded.Outputs[0].ID: dec("1.5")}))
		batchID := uuid.New()
		loaded.Outputs[0].BatchID = &batchID
		require.NoError(t, loaded.Finish(testDay.Add(2*time.Hour)))
		require.NoError(t, repo.Save(ctx, loaded))

		got, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, production.StatusFinished, got.Status)
		assert.Equal(t, 3, got.Version)
		require.NotNil(t, got.StartDate)
		require.NotNil(t, got.EndDate)
		assert.True(t, got.Outputs[0].ProducedQuantity.Equal(dec("1.5")))
		require.NotNil(t, got.Outputs[0].BatchID)
		assert.Equal(t, batchID, *got.Outputs[0].BatchID)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		stale.Version = 1
		err = repo.Save(ctx, stale)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("list by status", func(t *testing.T) {
		other, err := production.NewProductionOrder("PO-20260302-0007", nil,
			[]production.OutputInput{{ProductID: frame, Quantity: dec("1")}}, "", testDay)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, other))

		pending, total, err := repo.List(ctx, production.OrderFilter{Status: production.StatusPending})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, other.ID, pending[0].ID)

		exists, err := repo.ExistsByOrderNumber(ctx, other.OrderNumber)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("max order number suffix", func(t *testing.T) {
		for _, number := range []string{"PO-20260302-0003", "PO-20260302-X9", "PO-20260301-0042"} {
			o, err := production.NewProductionOrder(number, nil,
				[]production.OutputInput{{ProductID: frame, Quantity: dec("1")}}, "", testDay)
			require.NoError(t, err)
			require.NoError(t, repo.Create(ctx, o))
		}

		n, err := repo.MaxOrderNumberSuffix(ctx, "PO-20260302-")
		require.NoError(t, err)
		assert.Equal(t, 7, n)

		n, err = repo.MaxOrderNumberSuffix(ctx, "PO-20260305-")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}
