package event

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LoggingHandler writes one structured log line per domain event
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a LoggingHandler
func NewLoggingHandler(l *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: l.Named("domain_event")}
}

// EventTypes returns nil so the handler receives every event
func (h *LoggingHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with fields specific to its type
func (h *LoggingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if id := logger.GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	switch e := event.(type) {
	case *inventory.InventoryAdjustedEvent:
		fields = append(fields,
			zap.String("warehouse_id", e.WarehouseID.String()),
			zap.String("product_id", e.ProductID.String()),
			zap.String("delta", e.Delta.String()),
			zap.String("quantity", e.Quantity.String()),
		)
	case *inventory.BatchMintedEvent:
		fields = append(fields,
			zap.String("batch_code", e.BatchCode),
			zap.String("quantity", e.Quantity.String()),
			zap.String("source_type", string(e.SourceType)),
		)
	case *inventory.StockAllocatedEvent:
		fields = append(fields,
			zap.String("quantity", e.Quantity.String()),
			zap.Int("lines", len(e.Lines)),
		)
	case *inventory.StockTransferredEvent:
		fields = append(fields,
			zap.String("source_warehouse_id", e.SourceWarehouseID.String()),
			zap.String("dest_warehouse_id", e.DestWarehouseID.String()),
			zap.String("total_quantity", e.TotalQuantity.String()),
		)
	case *inventory.BatchWrittenOffEvent:
		fields = append(fields,
			zap.String("batch_code", e.BatchCode),
			zap.String("quantity", e.Quantity.String()),
		)
	case *production.ProductionFinishedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("total_produced", e.TotalProduced.String()),
		)
	case *production.ProductionCancelledEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("reason", e.Reason),
		)
	}

	h.logger.Info("domain event", fields...)
	return nil
}

var _ shared.EventHandler = (*LoggingHandler)(nil)
