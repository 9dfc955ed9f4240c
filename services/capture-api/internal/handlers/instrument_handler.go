package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/services"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type InstrumentHandler struct {
	logger  *zap.Logger
	service services.InstrumentService
}

func NewInstrumentHandler(logger *zap.Logger, svc services.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{logger: logger, service: svc}
}

// RegisterRoutes registers credit card and EBT card routes on the provided group.
func (h *InstrumentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/credit-cards", h.CreateCreditCard)
	r.GET("/credit-cards", h.ListCreditCards)
	r.GET("/credit-cards/:cardId", h.GetCreditCard)
	r.DELETE("/credit-cards/:cardId", h.DeleteCreditCard)

	r.POST("/ebt-cards", h.CreateEBT)
	r.GET("/ebt-cards", h.ListEBT)
	r.GET("/ebt-cards/:ebtId", h.GetEBT)
	r.DELETE("/ebt-cards/:ebtId", h.DeleteEBT)
}

// CreateCreditCard godoc
// @Summary  Create a credit card
// @Tags     instruments
// @Accept   json
// @Produce  json
// @Param    request body views.CreditCardRequest true "credit card"
// @Success  201 {object} common.APIResponse
// @Failure  400 {object} pkg.ErrorResponse
// @Router   /api/v1/credit-cards [post]
func (h *InstrumentHandler) CreateCreditCard(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	var req views.CreditCardRequest
	if !bindJSON(c, h.logger, traceID, &req) {
		return
	}
	card, err := h.service.CreateCreditCard(c.Request.Context(), traceID, req)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusCreated, traceID, card)
}

// ListCreditCards godoc
// @Summary  List credit cards
// @Tags     instruments
// @Produce  json
// @Param    page query int false "page number" default(1)
// @Param    size query int false "page size" default(20)
// @Success  200 {object} common.APIResponse
// @Router   /api/v1/credit-cards [get]
func (h *InstrumentHandler) ListCreditCards(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	q, ok := bindPage(c, h.logger, traceID)
	if !ok {
		return
	}
	cards, err := h.service.ListCreditCards(c.Request.Context(), traceID, q.Page, q.Size)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writePage(c, traceID, q, cards)
}

// GetCreditCard godoc
// @Summary  Get a credit card
// @Tags     instruments
// @Produce  json
// @Param    cardId path string true "credit card id"
// @Success  200 {object} common.APIResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/credit-cards/{cardId} [get]
func (h *InstrumentHandler) GetCreditCard(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "cardId")
	if !ok {
		return
	}
	card, err := h.service.GetCreditCard(c.Request.Context(), traceID, id)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusOK, traceID, card)
}

// DeleteCreditCard godoc
// @Summary  Delete a credit card and the payments that reference it
// @Tags     instruments
// @Param    cardId path string true "credit card id"
// @Success  204
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/credit-cards/{cardId} [delete]
func (h *InstrumentHandler) DeleteCreditCard(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "cardId")
	if !ok {
		return
	}
	if err := h.service.DeleteCreditCard(c.Request.Context(), traceID, id); err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateEBT godoc
// @Summary  Create an EBT card
// @Tags     instruments
// @Accept   json
// @Produce  json
// @Param    request body views.EBTRequest true "ebt card"
// @Success  201 {object} common.APIResponse
// @Failure  400 {object} pkg.ErrorResponse
// @Router   /api/v1/ebt-cards [post]
func (h *InstrumentHandler) CreateEBT(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	var req views.EBTRequest
	if !bindJSON(c, h.logger, traceID, &req) {
		return
	}
	ebt, err := h.service.CreateEBT(c.Request.Context(), traceID, req)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusCreated, traceID, ebt)
}

// ListEBT godoc
// @Summary  List EBT cards
// @Tags     instruments
// @Produce  json
// @Param    page query int false "page number" default(1)
// @Param    size query int false "page size" default(20)
// @Success  200 {object} common.APIResponse
// @Router   /api/v1/ebt-cards [get]
func (h *InstrumentHandler) ListEBT(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	q, ok := bindPage(c, h.logger, traceID)
	if !ok {
		return
	}
	ebts, err := h.service.ListEBT(c.Request.Context(), traceID, q.Page, q.Size)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writePage(c, traceID, q, ebts)
}

// GetEBT godoc
// @Summary  Get an EBT card
// @Tags     instruments
// @Produce  json
// @Param    ebtId path string true "ebt card id"
// @Success  200 {object} common.APIResponse
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/ebt-cards/{ebtId} [get]
func (h *InstrumentHandler) GetEBT(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "ebtId")
	if !ok {
		return
	}
	ebt, err := h.service.GetEBT(c.Request.Context(), traceID, id)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	writeData(c, http.StatusOK, traceID, ebt)
}

// DeleteEBT godoc
// @Summary  Delete an EBT card and the payments that reference it
// @Tags     instruments
// @Param    ebtId path string true "ebt card id"
// @Success  204
// @Failure  404 {object} pkg.ErrorResponse
// @Router   /api/v1/ebt-cards/{ebtId} [delete]
func (h *InstrumentHandler) DeleteEBT(c *gin.Context) {
	traceID, ok := requestTraceID(c, h.logger)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.logger, traceID, "ebtId")
	if !ok {
		return
	}
	if err := h.service.DeleteEBT(c.Request.Context(), traceID, id); err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.Status(http.StatusNoContent)
}
