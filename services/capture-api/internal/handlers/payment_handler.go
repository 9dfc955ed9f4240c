package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/services"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	logger  *zap.Logger
	service services.PaymentService
}

func NewPaymentHandler(logger *zap.Logger, svc services.PaymentService) *PaymentHandler {
	return &PaymentHandler{logger: logger, service: svc}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/payments", h.CreatePayment)
	r.GET("/payments", h.ListPayments)
	r.GET("/payments/:paymentId", h.GetPayment)
	r.DELETE("/payments/:paymentId", h.DeletePayment)
}

// CreatePayment godoc
// @Summary  Attach a payment to a draft order
// @Tags     payments
// @Accept   json
// @Produce  json
// @Param    request body views.PaymentRequest true "payment"
// @Success  201 {object} common.APIResponse
// @Failure  400 {object} pkg.ErrorResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Failure  409 {object} pkg.ErrorResponse
// @Router   /api/v1/payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	var req views.PaymentRequest
	if !bindJSON(c, h.logger, traceID, &req) {
		return
	}
	payment, err := h.service.CreatePayment(c.Request.Context(), traceID, req)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusCreated, traceID, payment)
}

// ListPayments godoc
// @Summary  List payments
// @Tags     payments
// @Produce  json
// @Param    page query int false "page number" default(1)
// @Param    size query int false "page size" default(20)
// @Success  200 {object} common.APIResponse
// @Router   /api/v1/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	q, ok := bindPage(c, h.logger, traceID)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(c.Request.Context(), traceID, q.Page, q.Size)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writePage(c, traceID, q, payments)
}

// GetPayment godoc
// @Summary  Get a payment
// @Tags     payments
// @Produce  json
// @Param    paymentId path string true "payment id"
// @Success  200 {object} common.APIResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/payments/{paymentId} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "paymentId")
	if !ok {
		return
	}
	payment, err := h.service.GetPayment(c.Request.Context(), traceID, id)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusOK, traceID, payment)
}

// DeletePayment godoc
// @Summary  Remove a payment from a draft order
// @Tags     payments
// @Param    paymentId path string true "payment id"
// @Success  204
// @Failure  404 {object} pkg.ErrorResponse
// @Failure  409 {object} pkg.ErrorResponse
// @Router   /api/v1/payments/{paymentId} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "paymentId")
	if !ok {
		return
	}
	if err := h.service.DeletePayment(c.Request.Context(), traceID, id); err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.Status(http.StatusNoContent)
}
