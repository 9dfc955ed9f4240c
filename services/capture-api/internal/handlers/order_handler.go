package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/services"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type OrderHandler struct {
	logger  *zap.Logger
	service services.OrderService
}

func NewOrderHandler(logger *zap.Logger, svc services.OrderService) *OrderHandler {
	return &OrderHandler{logger: logger, service: svc}
}

// RegisterRoutes registers order routes on the provided group.
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:orderId", h.GetOrder)
	r.DELETE("/orders/:orderId", h.DeleteOrder)
	r.GET("/orders/:orderId/payments", h.ListOrderPayments)
	r.GET("/orders/:orderId/capture", h.ListOrderPayments)
}

// CreateOrder godoc
// @Summary  Create a draft order
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    request body views.OrderRequest true "order totals"
// @Success  201 {object} common.APIResponse
// @Failure  400 {object} pkg.ErrorResponse
// @Router   /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	var req views.OrderRequest
	if !bindJSON(c, h.logger, traceID, &req) {
		return
	}
	order, err := h.service.CreateOrder(c.Request.Context(), traceID, req)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusCreated, traceID, order)
}

// ListOrders godoc
// @Summary  List orders
// @Tags     orders
// @Produce  json
// @Param    page query int false "page number" default(1)
// @Param    size query int false "page size" default(20)
// @Success  200 {object} common.APIResponse
// @Router   /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	q, ok := bindPage(c, h.logger, traceID)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(c.Request.Context(), traceID, q.Page, q.Size)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writePage(c, traceID, q, orders)
}

// GetOrder godoc
// @Summary  Get an order
// @Tags     orders
// @Produce  json
// @Param    orderId path string true "order id"
// @Success  200 {object} common.APIResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/orders/{orderId} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "orderId")
	if !ok {
		return
	}
	order, err := h.service.GetOrder(c.Request.Context(), traceID, id)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusOK, traceID, order)
}

// DeleteOrder godoc
// @Summary  Delete an order and its payments
// @Tags     orders
// @Param    orderId path string true "order id"
// @Success  204
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/orders/{orderId} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "orderId")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(c.Request.Context(), traceID, id); err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOrderPayments godoc
// @Summary  List the payments of an order
// @Tags     orders
// @Produce  json
// @Param    orderId path string true "order id"
// @Success  200 {object} common.APIResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/orders/{orderId}/payments [get]
// @Router   /api/v1/orders/{orderId}/capture [get]
func (h *OrderHandler) ListOrderPayments(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "orderId")
	if !ok {
		return
	}
	payments, err := h.service.ListOrderPayments(c.Request.Context(), traceID, id)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusOK, traceID, payments)
}
