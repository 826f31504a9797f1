package inventory

import (
	"errors"
	"testing"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInventoryRecord(t *testing.T) {
	t.Run("positive delta opens the record", func(t *testing.T) {
		rec, err := OpenInventoryRecord(testWarehouse, testProduct, dec(5), day0)
		require.NoError(t, err)
		assert.True(t, rec.Quantity.Equal(dec(5)))
		assert.Equal(t, day0, rec.LastUpdated)
		assert.Len(t, rec.GetDomainEvents(), 1)
	})

	t.Run("non-positive delta on a missing record is an invalid operation", func(t *testing.T) {
		_, err := OpenInventoryRecord(testWarehouse, testProduct, dec(0), day0)
		assert.True(t, errors.Is(err, shared.ErrInvalidOperation))

		_, err = OpenInventoryRecord(testWarehouse, testProduct, dec(-1), day0)
		assert.True(t, errors.Is(err, shared.ErrInvalidOperation))
	})

	t.Run("requires both keys", func(t *testing.T) {
		_, err := OpenInventoryRecord(uuid.Nil, testProduct, dec(1), day0)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestInventoryRecord_Adjust(t *testing.T) {
	later := day0.AddDate(0, 0, 1)

	t.Run("adds and subtracts", func(t *testing.T) {
		rec, err := OpenInventoryRecord(testWarehouse, testProduct, dec(10), day0)
		require.NoError(t, err)

		q, err := rec.Adjust(dec(-4), later)
		require.NoError(t, err)
		assert.True(t, q.Equal(dec(6)))
		assert.Equal(t, later, rec.LastUpdated)
		assert.Equal(t, 2, rec.GetVersion())
	})

	t.Run("can reach exactly zero", func(t *testing.T) {
		rec, _ := OpenInventoryRecord(testWarehouse, testProduct, dec(3), day0)
		q, err := rec.Adjust(dec(-3), later)
		require.NoError(t, err)
		assert.True(t, q.IsZero())
	})

	t.Run("rejects negative result and keeps quantity", func(t *testing.T) {
		rec, _ := OpenInventoryRecord(testWarehouse, testProduct, dec(3), day0)
		_, err := rec.Adjust(dec(-4), later)
		assert.True(t, errors.Is(err, shared.ErrNegativeInventory))
		assert.True(t, rec.Quantity.Equal(dec(3)))
		assert.Equal(t, day0, rec.LastUpdated)
		assert.Equal(t, 1, rec.GetVersion())
	})
}
