package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(mw gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(mw)
	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return engine
}

func serve(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := newTestEngine(CORS([]string{"https://shop.example.com"}))

	w := serve(engine, http.MethodGet, "/ping", map[string]string{
		"Origin": "https://shop.example.com",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	engine := newTestEngine(CORS([]string{"https://shop.example.com"}))

	w := serve(engine, http.MethodGet, "/ping", map[string]string{
		"Origin": "https://evil.example.com",
	})

	// Request is served, but no CORS headers are granted
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEmptyWhitelistGrantsNothing(t *testing.T) {
	engine := newTestEngine(CORS(nil))

	w := serve(engine, http.MethodGet, "/ping", map[string]string{
		"Origin": "https://shop.example.com",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcard(t *testing.T) {
	engine := newTestEngine(CORS([]string{"*"}))

	w := serve(engine, http.MethodGet, "/ping", map[string]string{
		"Origin": "https://anywhere.example.com",
	})

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
}

func TestCORSPreflight(t *testing.T) {
	engine := newTestEngine(CORS([]string{"https://shop.example.com"}))

	w := serve(engine, http.MethodOptions, "/ping", map[string]string{
		"Origin": "https://shop.example.com",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.NotEmpty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestRequestIDGenerated(t *testing.T) {
	engine := newTestEngine(RequestID())

	w := serve(engine, http.MethodGet, "/ping", nil)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsCallerValue(t *testing.T) {
	engine := newTestEngine(RequestID())

	w := serve(engine, http.MethodGet, "/ping", map[string]string{
		"X-Request-ID": "caller-supplied-id",
	})

	assert.Equal(t, "caller-supplied-id", w.Header().Get("X-Request-ID"))
}

func TestSecureHeaders(t *testing.T) {
	engine := newTestEngine(Secure())

	w := serve(engine, http.MethodGet, "/ping", nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
}
