package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockBatchCodes answers the two lookups a CodeSequence makes. Any other
// repository method panics through the nil embedded interface.
type mockBatchCodes struct {
	inventory.StockBatchRepository
	mock.Mock
}

func (m *mockBatchCodes) MaxCodeSuffix(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

func (m *mockBatchCodes) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

// takenCodes reports every code as taken
type takenCodes struct {
	inventory.StockBatchRepository
	probes int
}

func (t *takenCodes) MaxCodeSuffix(context.Context, string) (int, error) { return 0, nil }

func (t *takenCodes) ExistsByCode(context.Context, string) (bool, error) {
	t.probes++
	return true, nil
}

func TestCodeSequence_Next(t *testing.T) {
	ctx := context.Background()

	t.Run("starts after the stored maximum and skips taken codes", func(t *testing.T) {
		repo := new(mockBatchCodes)
		repo.On("MaxCodeSuffix", ctx, "LOT").Return(3, nil).Once()
		repo.On("ExistsByCode", ctx, "LOT0004").Return(true, nil).Once()
		repo.On("ExistsByCode", ctx, "LOT0005").Return(false, nil).Once()
		repo.On("ExistsByCode", ctx, "LOT0006").Return(false, nil).Once()

		seq := NewCodeSequence("LOT")
		code, err := seq.Next(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, "LOT0005", code)

		code, err = seq.Next(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, "LOT0006", code, "the stored maximum is read once per sequence")
		assert.Equal(t, 2, seq.Issued())
		repo.AssertExpectations(t)
	})

	t.Run("starts at one for a fresh prefix", func(t *testing.T) {
		repo := new(mockBatchCodes)
		repo.On("MaxCodeSuffix", ctx, "BATCH").Return(0, nil)
		repo.On("ExistsByCode", ctx, "BATCH0001").Return(false, nil)

		code, err := NewCodeSequence("BATCH").Next(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, "BATCH0001", code)
	})

	t.Run("widens past four digits", func(t *testing.T) {
		repo := new(mockBatchCodes)
		repo.On("MaxCodeSuffix", ctx, "BATCH").Return(9999, nil)
		repo.On("ExistsByCode", ctx, "BATCH10000").Return(false, nil)

		code, err := NewCodeSequence("BATCH").Next(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, "BATCH10000", code)
	})

	t.Run("empty prefix", func(t *testing.T) {
		_, err := NewCodeSequence("").Next(ctx, new(mockBatchCodes))
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("lookup failure is wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		repo := new(mockBatchCodes)
		repo.On("MaxCodeSuffix", ctx, "LOT").Return(0, boom)

		_, err := NewCodeSequence("LOT").Next(ctx, repo)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("gives up after the probe limit", func(t *testing.T) {
		repo := &takenCodes{}
		_, err := NewCodeSequence("LOT").Next(ctx, repo)
		assert.ErrorIs(t, err, shared.ErrDuplicateCode)
		assert.Equal(t, MaxCodeProbes, repo.probes)
	})
}
