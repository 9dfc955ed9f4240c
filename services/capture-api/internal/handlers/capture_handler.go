package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/services"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type CaptureHandler struct {
	logger  *zap.Logger
	service services.CaptureService
}

func NewCaptureHandler(logger *zap.Logger, svc services.CaptureService) *CaptureHandler {
	return &CaptureHandler{logger: logger, service: svc}
}

func (h *CaptureHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orders/:orderId/capture", h.Capture)
	r.POST("/orders/:orderId/capture-requests", h.RequestCapture)
}

// Capture godoc
// @Summary      Capture a draft order
// @Description  Settles every payment of the order. The order succeeds only when all payments settle.
// @Tags         capture
// @Produce      json
// @Param        orderId path string true "order id"
// @Success      200 {object} common.APIResponse
// @Failure      400 {object} pkg.ErrorResponse "payment total mismatch or EBT limit exceeded; the order is failed"
// @Failure      404 {object} pkg.ErrorResponse
// @Failure      409 {object} pkg.ErrorResponse
// @Router       /api/v1/orders/{orderId}/capture [post]
func (h *CaptureHandler) Capture(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "orderId")
	if !ok {
		return
	}
	result, err := h.service.Capture(c.Request.Context(), traceID, id)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusOK, traceID, result)
}

// RequestCapture godoc
// @Summary  Queue a draft order for asynchronous capture
// @Tags     capture
// @Produce  json
// @Param    orderId path string true "order id"
// @Success  202 {object} common.APIResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Failure  409 {object} pkg.ErrorResponse
// @Failure  503 {object} pkg.ErrorResponse
// @Router   /api/v1/orders/{orderId}/capture-requests [post]
func (h *CaptureHandler) RequestCapture(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "orderId")
	if !ok {
		return
	}
	if err := h.service.RequestCapture(c.Request.Context(), traceID, id); err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusAccepted, traceID, views.CaptureAccepted{OrderID: id.String(), Status: "queued"})
}
