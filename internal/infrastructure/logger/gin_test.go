package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func requestLogEntry(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddlewareLogsCompletedRequest(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog?page=2", nil))

	entry := requestLogEntry(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/catalog", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "page=2", fields["query"])
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")
}

func TestGinMiddlewareCarriesRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-123")
		c.Next()
	})
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/catalog", func(c *gin.Context) { c.Status(http.StatusOK) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog", nil))

	entry := requestLogEntry(t, recorded)
	assert.Equal(t, "req-123", entry.ContextMap()["request_id"])
}

func TestGinMiddlewareLevelTracksStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		core, recorded := observer.New(zapcore.InfoLevel)

		engine := gin.New()
		engine.Use(GinMiddleware(zap.New(core)))
		status := tt.status
		engine.GET("/x", func(c *gin.Context) { c.Status(status) })

		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		entry := requestLogEntry(t, recorded)
		assert.Equal(t, tt.expected, entry.Level, "status %d", tt.status)
	}
}

func TestRecoveryLogsPanicAndRespondsEnvelope(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)

	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")

	entries := recorded.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/boom", entries[0].ContextMap()["path"])
}

func TestGetGinLoggerReturnsRequestLogger(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)

	var fromCtx *zap.Logger
	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/x", func(c *gin.Context) {
		fromCtx = GetGinLogger(c)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.NotNil(t, fromCtx)
}

func TestGetGinLoggerFallsBackToNop(t *testing.T) {
	var fromCtx *zap.Logger
	engine := gin.New()
	engine.GET("/x", func(c *gin.Context) {
		fromCtx = GetGinLogger(c)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.NotNil(t, fromCtx)
	assert.NotPanics(t, func() { fromCtx.Info("ignored") })
}
