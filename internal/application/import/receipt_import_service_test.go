package importapp_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	importapp "github.com/erp/warehouse/internal/application/import"
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/storage"
	"github.com/erp/warehouse/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "WarehouseId,ProductId,Quantity,BatchCode,ExpireDate,TransactionId,Note\n"

func csvOf(rows ...string) []byte {
	return []byte(header + strings.Join(rows, "\n") + "\n")
}

func TestReceiptImportService_Import(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	wh := s.Warehouse(t, "WH1")
	p := s.Product(t, "SKU1", "1")

	data := csvOf(
		"WH1,SKU1,5,,,,first",
		wh.ID.String()+","+p.ID.String()+",3,lot,2026-12-31,,second",
		"WH1,SKU1,abc,,,,bad quantity",
		"NOPE,SKU1,1,,,,unknown warehouse",
		"WH1,SKU1,2,,2026-03-02,,expires today",
		"wh1,sku1,4,,,,lower case codes",
	)

	result, err := s.Import.Import(ctx, importapp.ReceiptImportRequest{FileName: "receipts.csv", Data: data})
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalRows)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 3, result.FailedCount)
	assert.False(t, result.ErrorsTruncated)
	require.Len(t, result.ErrorMessages, 3)
	assert.Contains(t, result.ErrorMessages[0], "row 3")
	assert.Contains(t, result.ErrorMessages[0], "Quantity")
	assert.Contains(t, result.ErrorMessages[1], "row 4")
	assert.Contains(t, result.ErrorMessages[2], "row 5")

	require.Len(t, result.ImportedBatches, 3)
	codes := []string{
		result.ImportedBatches[0].BatchCode,
		result.ImportedBatches[1].BatchCode,
		result.ImportedBatches[2].BatchCode,
	}
	assert.Equal(t, []string{"BATCH0001", "LOT0001", "BATCH0002"}, codes)
	require.NotNil(t, result.ImportedBatches[1].ExpireDate)
	assert.Equal(t, "second", result.ImportedBatches[1].Note)

	assert.True(t, s.Quantity(t, wh, p).Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 3, s.Events.Count(inventory.EventTypeBatchMinted))
	s.RequireConsistent(t)
}

func TestReceiptImportService_FiftyRowsShareOnePrefix(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	wh := s.Warehouse(t, "WH1")
	p := s.Product(t, "SKU1", "1")

	for i := 0; i < 3; i++ {
		_, err := s.Inventory.Receive(ctx, inventoryapp.ReceiveRequest{
			WarehouseID: wh.ID,
			ProductID:   p.ID,
			Quantity:    decimal.NewFromInt(1),
			BatchPrefix: "LOT",
		})
		require.NoError(t, err)
	}

	rows := make([]string, 50)
	for i := range rows {
		rows[i] = fmt.Sprintf("WH1,SKU1,%d,LOT,,,", i+1)
	}
	result, err := s.Import.Import(ctx, importapp.ReceiptImportRequest{FileName: "bulk.csv", Data: csvOf(rows...)})
	require.NoError(t, err)

	assert.Equal(t, 50, result.SuccessCount)
	assert.Zero(t, result.FailedCount)
	require.Len(t, result.ImportedBatches, 50)

	seen := make(map[string]bool, 50)
	for i, b := range result.ImportedBatches {
		assert.Equal(t, fmt.Sprintf("LOT%04d", i+4), b.BatchCode)
		assert.False(t, seen[b.BatchCode], "code %s issued twice", b.BatchCode)
		seen[b.BatchCode] = true
	}

	// 3 pre-existing units plus 1..50
	assert.True(t, s.Quantity(t, wh, p).Equal(decimal.NewFromInt(3+50*51/2)))
	s.RequireConsistent(t)
}

func TestReceiptImportService_ValidateOnly(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	wh := s.Warehouse(t, "WH1")
	p := s.Product(t, "SKU1", "1")

	archive := storage.NewMemoryArchiver()
	s.Import.SetArchiver(archive)

	result, err := s.Import.Import(ctx, importapp.ReceiptImportRequest{
		FileName:     "check.csv",
		Data:         csvOf("WH1,SKU1,5,,,,", "WH1,SKU1,-1,,,,"),
		ValidateOnly: true,
	})
	require.NoError(t, err)

	assert.True(t, result.ValidateOnly)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Empty(t, result.ImportedBatches)
	assert.Empty(t, result.ArchiveKey)
	assert.Zero(t, archive.Len())
	assert.True(t, s.Quantity(t, wh, p).IsZero())

	batches, total, err := s.Inventory.ListBatches(ctx, inventoryapp.BatchListFilter{IncludeEmpty: true})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, batches)
}

func TestReceiptImportService_ArchivesUpload(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	s.Warehouse(t, "WH1")
	s.Product(t, "SKU1", "1")

	archive := storage.NewMemoryArchiver()
	s.Import.SetArchiver(archive)

	data := csvOf("WH1,SKU1,1,,,,")
	result, err := s.Import.Import(ctx, importapp.ReceiptImportRequest{FileName: "in.csv", Data: data})
	require.NoError(t, err)
	require.NotEmpty(t, result.ArchiveKey)

	stored, ok := archive.Get(result.ArchiveKey)
	require.True(t, ok)
	assert.Equal(t, data, stored)
}

func TestReceiptImportService_Latin1(t *testing.T) {
	s := testutil.NewStack(t)
	s.Warehouse(t, "WH1")
	s.Product(t, "SKU1", "1")

	data := csvOf("WH1,SKU1,1,,,,Caf\xe9")
	result, err := s.Import.Import(context.Background(), importapp.ReceiptImportRequest{
		FileName: "latin.csv",
		Data:     data,
		Encoding: "latin1",
	})
	require.NoError(t, err)
	require.Len(t, result.ImportedBatches, 1)
	assert.Equal(t, "Café", result.ImportedBatches[0].Note)
}

func TestReceiptImportService_FileErrors(t *testing.T) {
	s := testutil.NewStack(t, testutil.WithImportConfig(importapp.Config{MaxRows: 2, MaxFileSize: 512}))
	s.Warehouse(t, "WH1")
	s.Product(t, "SKU1", "1")

	tests := []struct {
		name     string
		req      importapp.ReceiptImportRequest
		contains string
	}{
		{
			name:     "missing required column",
			req:      importapp.ReceiptImportRequest{Data: []byte("WarehouseId,ProductId\nWH1,SKU1\n")},
			contains: "Quantity",
		},
		{
			name: "header only",
			req:  importapp.ReceiptImportRequest{Data: []byte(header)},
		},
		{
			name: "empty file",
			req:  importapp.ReceiptImportRequest{Data: []byte{}},
		},
		{
			name: "too many rows",
			req:  importapp.ReceiptImportRequest{Data: csvOf("WH1,SKU1,1,,,,", "WH1,SKU1,1,,,,", "WH1,SKU1,1,,,,")},
		},
		{
			name:     "too large",
			req:      importapp.ReceiptImportRequest{Data: []byte(header + strings.Repeat("x", 600))},
			contains: "limit is 512",
		},
		{
			name:     "unknown encoding",
			req:      importapp.ReceiptImportRequest{Data: csvOf("WH1,SKU1,1,,,,"), Encoding: "ebcdic"},
			contains: "ebcdic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Import.Import(context.Background(), tt.req)
			require.ErrorIs(t, err, shared.ErrValidation)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestReceiptImportService_ErrorLimit(t *testing.T) {
	s := testutil.NewStack(t, testutil.WithImportConfig(importapp.Config{MaxErrors: 2}))

	result, err := s.Import.Import(context.Background(), importapp.ReceiptImportRequest{
		Data: csvOf("X,Y,1,,,,", "X,Y,1,,,,", "X,Y,1,,,,", "X,Y,1,,,,"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.FailedCount)
	assert.Len(t, result.ErrorMessages, 2)
	assert.True(t, result.ErrorsTruncated)
}
