package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockTransaction_Numbers(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tx := NewStockTransaction(TransactionReceipt, at)
		require.False(t, seen[tx.TransactionNumber], "number %s issued twice", tx.TransactionNumber)
		seen[tx.TransactionNumber] = true
		assert.Regexp(t, `^RECEIPT-20260302-[0-9A-F]{32}$`, tx.TransactionNumber)
	}

	longest := NewStockTransaction(TransactionProductionConsume, at)
	assert.LessOrEqual(t, len(longest.TransactionNumber), 64, "fits the transaction_number column")
}

func TestStockTransaction_AddTotals(t *testing.T) {
	tx := NewStockTransaction(TransactionTransfer, time.Now())
	tx.AddTotals(decimal.NewFromInt(4), decimal.RequireFromString("0.5"))
	tx.AddTotals(decimal.NewFromInt(2), decimal.NewFromInt(3))

	assert.True(t, tx.TotalQuantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, tx.TotalWeight.Equal(decimal.NewFromInt(8)))
}
