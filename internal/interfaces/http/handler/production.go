package handler

import (
	productionapp "github.com/erp/warehouse/internal/application/production"
	"github.com/gin-gonic/gin"
)

// ProductionHandler drives production orders through their lifecycle
type ProductionHandler struct {
	BaseHandler
	productionService *productionapp.Service
}

// NewProductionHandler creates a new ProductionHandler
func NewProductionHandler(productionService *productionapp.Service) *ProductionHandler {
	return &ProductionHandler{productionService: productionService}
}

// Create stores a PENDING order
// POST /production-orders
func (h *ProductionHandler) Create(c *gin.Context) {
	var req productionapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.productionService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List lists orders, optionally filtered by status
// GET /production-orders
func (h *ProductionHandler) List(c *gin.Context) {
	var filter productionapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	orders, total, err := h.productionService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// Get returns an order by ID
// GET /production-orders/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.productionService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Start consumes the materials and moves the order to PROCESSING
// POST /production-orders/:id/start
func (h *ProductionHandler) Start(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.productionService.Start(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel cancels a PENDING order
// POST /production-orders/:id/cancel
func (h *ProductionHandler) Cancel(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req productionapp.CancelOrderRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	order, err := h.productionService.Cancel(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Finish mints the outputs and moves the order to FINISHED. The body is
// optional; lines it does not list produce their planned quantity.
// POST /production-orders/:id/finish
func (h *ProductionHandler) Finish(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req productionapp.FinishOrderRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	order, err := h.productionService.Finish(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RegisterRoutes registers the production order routes
func (h *ProductionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/production-orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/:id", h.Get)
	orders.POST("/:id/start", h.Start)
	orders.POST("/:id/cancel", h.Cancel)
	orders.POST("/:id/finish", h.Finish)
}
