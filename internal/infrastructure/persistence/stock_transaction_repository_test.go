package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockTransactionRepository_SQLite(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormStockTransactionRepository(db)
	ctx := context.Background()

	source, dest, p := uuid.New(), uuid.New(), uuid.New()
	out1 := mustBatch(t, source, p, "SRC1", "4", testDay, nil)
	out2 := mustBatch(t, source, p, "SRC2", "6", testDay, nil)
	in := mustBatch(t, dest, p, "DST1", "10", testDay, nil)

	tx := inventory.NewStockTransaction(inventory.TransactionTransfer, testDay)
	tx.SourceWarehouseID = &source
	tx.DestWarehouseID = &dest
	tx.RecordBatchOut(out2, dec("6"))
	tx.RecordBatchOut(out1, dec("4"))
	tx.RecordIn(in)
	tx.AddTotals(dec("10"), dec("1.5"))

	require.NoError(t, repo.Create(ctx, tx))

	got, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.TransactionTransfer, got.Type)
	assert.Equal(t, tx.TransactionNumber, got.TransactionNumber)
	assert.True(t, got.TotalWeight.Equal(dec("15")))
	require.Len(t, got.Movements, 3)
	assert.Equal(t, out2.ID, got.Movements[0].BatchID)
	assert.Equal(t, out1.ID, got.Movements[1].BatchID)
	assert.Equal(t, inventory.DirectionIn, got.Movements[2].Direction)

	exists, err := repo.Exists(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
