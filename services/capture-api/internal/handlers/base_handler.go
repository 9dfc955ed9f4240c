package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/common"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type BaseHandler struct {
	logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{logger: logger}
}

func (b *BaseHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", b.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// GetHealth godoc
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200 {object} map[string]string
// @Router   /health [get]
func (b *BaseHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// requestTraceID reads the trace id set by the trace middleware and writes a 500 when it is missing.
func requestTraceID(c *gin.Context, logger *zap.Logger) (string, bool) {
	id, err := utils.GetTraceID(c)
	if err != nil {
		writeError(c, logger, "", pkg.NewAppError(pkg.ErrServerCode, err.Error(), err))
		return "", false
	}
	return id, true
}

func writeError(c *gin.Context, logger *zap.Logger, traceID string, err error) {
	_ = c.Error(err)
	resp := pkg.ToErrorResponse(logger, traceID, err)
	c.JSON(resp.Status, resp)
}

func writeData(c *gin.Context, status int, traceID string, data any) {
	c.JSON(status, common.APIResponse{TraceID: traceID, Data: data})
}

// bindJSON decodes the request body and reports binding failures as invalid input.
func bindJSON(c *gin.Context, logger *zap.Logger, traceID string, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid request body", err))
		return false
	}
	return true
}

type pageQuery struct {
	Page int `form:"page" binding:"omitempty,min=1"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}

// bindPage reads ?page=&size=, defaulting to the first page of 20 items.
func bindPage(c *gin.Context, logger *zap.Logger, traceID string) (pageQuery, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode,
			"page must be >= 1 and size between 1 and 100", err))
		return q, false
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	return q, true
}

func writePage(c *gin.Context, traceID string, q pageQuery, items any) {
	writeData(c, http.StatusOK, traceID, common.PageResponse{Page: q.Page, Size: q.Size, Items: items})
}

func uuidParam(c *gin.Context, logger *zap.Logger, traceID, name string) (uuid.UUID, bool) {
	parsed, err := utils.ParseUUIDParam(c, name)
	if err != nil {
		writeError(c, logger, traceID, err)
		return parsed, false
	}
	return parsed, true
}
