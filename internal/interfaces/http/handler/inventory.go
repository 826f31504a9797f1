package handler

import (
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// InventoryHandler serves ledger lines, batches, transactions and the
// direct stock operations
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// ListRecords lists inventory records
// GET /inventory/records
func (h *InventoryHandler) ListRecords(c *gin.Context) {
	var filter inventoryapp.RecordListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.WarehouseID, ok = h.optionalUUIDQuery(c, "warehouse_id"); !ok {
		return
	}
	if filter.ProductID, ok = h.optionalUUIDQuery(c, "product_id"); !ok {
		return
	}

	records, total, err := h.inventoryService.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, records, total, page, pageSize)
}

// GetRecord returns the ledger line of one warehouse and product
// GET /inventory/records/:warehouse_id/:product_id
func (h *InventoryHandler) GetRecord(c *gin.Context) {
	warehouseID, ok := h.uuidParam(c, "warehouse_id")
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	record, err := h.inventoryService.GetRecord(c.Request.Context(), warehouseID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// ListBatches lists stock batches
// GET /inventory/batches
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	var filter inventoryapp.BatchListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.WarehouseID, ok = h.optionalUUIDQuery(c, "warehouse_id"); !ok {
		return
	}
	if filter.ProductID, ok = h.optionalUUIDQuery(c, "product_id"); !ok {
		return
	}

	batches, total, err := h.inventoryService.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, batches, total, page, pageSize)
}

// GetBatch returns a batch by ID
// GET /inventory/batches/:id
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.inventoryService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// GetTransaction returns a stock transaction with its movements
// GET /transactions/:id
func (h *InventoryHandler) GetTransaction(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	tx, err := h.inventoryService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Allocate issues stock FIFO from one warehouse
// POST /inventory/allocations
func (h *InventoryHandler) Allocate(c *gin.Context) {
	var req inventoryapp.AllocateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.inventoryService.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Receive books a single inbound receipt as a new batch
// POST /inventory/receipts
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req inventoryapp.ReceiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.inventoryService.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// WriteOffExpired retires every batch expired on or before as_of
// (query, date or RFC 3339; defaults to now)
// POST /inventory/write-offs/expired
func (h *InventoryHandler) WriteOffExpired(c *gin.Context) {
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := parseDateTime(raw)
		if err != nil {
			h.Error(c, dto.ErrCodeValidation, "Invalid as_of, expected YYYY-MM-DD or RFC 3339")
			return
		}
		asOf = t
	}

	result, err := h.inventoryService.WriteOffExpired(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reconcile compares ledger quantities with batch remainders
// GET /inventory/reconciliation
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	warehouseID, ok := h.optionalUUIDQuery(c, "warehouse_id")
	if !ok {
		return
	}

	result, err := h.inventoryService.Reconcile(c.Request.Context(), warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers the inventory and transaction routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	inv.GET("/records", h.ListRecords)
	inv.GET("/records/:warehouse_id/:product_id", h.GetRecord)
	inv.GET("/batches", h.ListBatches)
	inv.GET("/batches/:id", h.GetBatch)
	inv.POST("/allocations", h.Allocate)
	inv.POST("/receipts", h.Receive)
	inv.POST("/write-offs/expired", h.WriteOffExpired)
	inv.GET("/reconciliation", h.Reconcile)

	rg.GET("/transactions/:id", h.GetTransaction)
}
