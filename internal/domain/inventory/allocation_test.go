package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testWarehouse = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	testProduct   = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	day0          = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestBatch(t *testing.T, code string, qty int64, imported time.Time, expires *time.Time) *StockBatch {
	t.Helper()
	b, err := NewStockBatch(BatchSpec{
		WarehouseID: testWarehouse,
		ProductID:   testProduct,
		BatchCode:   code,
		Quantity:    dec(qty),
		ImportDate:  imported,
		ExpireDate:  expires,
	})
	require.NoError(t, err)
	return b
}

func TestPlanFIFO(t *testing.T) {
	t.Run("consumes oldest batch first then spills into the next", func(t *testing.T) {
		b2 := newTestBatch(t, "B2", 10, day0.AddDate(0, 0, 2), nil)
		b1 := newTestBatch(t, "B1", 10, day0.AddDate(0, 0, 1), nil)

		plan, err := PlanFIFO([]*StockBatch{b2, b1}, testWarehouse, testProduct, dec(12), day0.AddDate(0, 0, 3))
		require.NoError(t, err)
		require.Len(t, plan.Lines, 2)

		assert.Equal(t, b1.ID, plan.Lines[0].BatchID)
		assert.True(t, plan.Lines[0].Quantity.Equal(dec(10)))
		assert.Equal(t, b2.ID, plan.Lines[1].BatchID)
		assert.True(t, plan.Lines[1].Quantity.Equal(dec(2)))
		assert.True(t, plan.Total().Equal(dec(12)))
	})

	t.Run("planning does not mutate batches", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", 10, day0, nil)

		_, err := PlanFIFO([]*StockBatch{b1}, testWarehouse, testProduct, dec(4), day0)
		require.NoError(t, err)
		assert.True(t, b1.QuantityOut.IsZero())
	})

	t.Run("skips expired batch even when it is the oldest", func(t *testing.T) {
		asOf := day0.AddDate(0, 0, 10)
		expired := newTestBatch(t, "OLD", 50, day0, timePtr(asOf))
		fresh := newTestBatch(t, "NEW", 5, day0.AddDate(0, 0, 1), timePtr(asOf.AddDate(0, 1, 0)))

		plan, err := PlanFIFO([]*StockBatch{expired, fresh}, testWarehouse, testProduct, dec(5), asOf)
		require.NoError(t, err)
		require.Len(t, plan.Lines, 1)
		assert.Equal(t, fresh.ID, plan.Lines[0].BatchID)

		_, err = PlanFIFO([]*StockBatch{expired, fresh}, testWarehouse, testProduct, dec(6), asOf)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("skips inactive and exhausted batches", func(t *testing.T) {
		inactive := newTestBatch(t, "I", 10, day0, nil)
		inactive.Status = BatchStatusInactive
		empty := newTestBatch(t, "E", 10, day0, nil)
		require.NoError(t, empty.Consume(dec(10), day0))
		live := newTestBatch(t, "L", 3, day0.AddDate(0, 0, 1), nil)

		plan, err := PlanFIFO([]*StockBatch{inactive, empty, live}, testWarehouse, testProduct, dec(3), day0)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{live.ID}, plan.BatchIDs())
	})

	t.Run("ties on import date break by batch id", func(t *testing.T) {
		a := newTestBatch(t, "A", 1, day0, nil)
		b := newTestBatch(t, "B", 1, day0, nil)
		first, second := a, b
		if b.ID.String() < a.ID.String() {
			first, second = b, a
		}

		plan, err := PlanFIFO([]*StockBatch{second, first}, testWarehouse, testProduct, dec(2), day0)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{first.ID, second.ID}, plan.BatchIDs())
	})

	t.Run("no candidates is insufficient stock, not not-found", func(t *testing.T) {
		_, err := PlanFIFO(nil, testWarehouse, testProduct, dec(1), day0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.False(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("non-positive quantity is a validation error", func(t *testing.T) {
		for _, q := range []decimal.Decimal{decimal.Zero, dec(-3)} {
			_, err := PlanFIFO(nil, testWarehouse, testProduct, q, day0)
			assert.True(t, errors.Is(err, shared.ErrValidation), "quantity %s", q)
		}
	})

	t.Run("ignores batches of other pairs", func(t *testing.T) {
		other := newTestBatch(t, "X", 10, day0, nil)
		other.ProductID = uuid.New()

		_, err := PlanFIFO([]*StockBatch{other}, testWarehouse, testProduct, dec(1), day0)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})
}

func TestAllocationPlan_EarliestExpiry(t *testing.T) {
	tests := []struct {
		name    string
		expires []*time.Time
		want    *time.Time
	}{
		{name: "no expiry anywhere", expires: []*time.Time{nil, nil}, want: nil},
		{name: "single expiry", expires: []*time.Time{nil, timePtr(day0)}, want: timePtr(day0)},
		{
			name:    "picks the earliest",
			expires: []*time.Time{timePtr(day0.AddDate(0, 2, 0)), timePtr(day0.AddDate(0, 1, 0)), nil},
			want:    timePtr(day0.AddDate(0, 1, 0)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &AllocationPlan{}
			for _, e := range tt.expires {
				plan.Lines = append(plan.Lines, AllocationLine{ExpireDate: e, Quantity: dec(1)})
			}
			got := plan.EarliestExpiry()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.want))
		})
	}
}
