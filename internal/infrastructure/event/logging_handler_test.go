package event

import (
	"context"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingHandler_Handle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewLoggingHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	batch, err := inventory.NewStockBatch(inventory.BatchSpec{
		WarehouseID: uuid.New(),
		ProductID:   uuid.New(),
		BatchCode:   "LOT0001",
		Quantity:    decimal.NewFromInt(12),
		ImportDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		SourceType:  inventory.SourceReceipt,
	})
	require.NoError(t, err)

	ctx, _ := logger.WithRequestID(context.Background(), zap.NewNop(), "req-7")
	require.NoError(t, h.Handle(ctx, inventory.NewBatchMintedEvent(batch)))

	entries := logs.FilterMessage("domain event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, inventory.EventTypeBatchMinted, fields["event_type"])
	assert.Equal(t, "LOT0001", fields["batch_code"])
	assert.Equal(t, "12", fields["quantity"])
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "domain_event", entries[0].LoggerName)
}
