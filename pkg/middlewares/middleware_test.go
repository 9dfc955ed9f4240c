package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceID(zap.NewNop()), Metrics())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(pkg.TraceId))
	})
	return r
}

func TestTraceID(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"propagates trace header", map[string]string{pkg.HeaderTraceId: "trace-1"}, "trace-1"},
		{"falls back to request id", map[string]string{pkg.HeaderRequestId: "req-1"}, "req-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
			assert.Equal(t, tt.want, w.Header().Get(pkg.HeaderTraceId))
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(pkg.HeaderTraceId))
	assert.Equal(t, w.Body.String(), w.Header().Get(pkg.HeaderTraceId))
}
