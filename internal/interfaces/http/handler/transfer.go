package handler

import (
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// TransferHandler moves stock between warehouses
type TransferHandler struct {
	BaseHandler
	coordinator *inventoryapp.TransferCoordinator
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(coordinator *inventoryapp.TransferCoordinator) *TransferHandler {
	return &TransferHandler{coordinator: coordinator}
}

// Transfer executes a multi-line transfer atomically
// POST /transfers
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req inventoryapp.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.coordinator.Transfer(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// RegisterRoutes registers the transfer routes
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/transfers", h.Transfer)
}
