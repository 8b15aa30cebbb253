package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"pyrometer-service/internal/config"
)

func newRouter(security *config.SecurityConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop()))
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(security))
	router.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return router
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newRouter(&config.SecurityConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/echo", nil))
	assigned := w.Header().Get(RequestIDHeader)
	assert.Len(t, assigned, 36)
	assert.Equal(t, assigned, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestCORSMiddleware_AllowedOrigins(t *testing.T) {
	router := newRouter(&config.SecurityConfig{AllowedOrigins: []string{"http://hmi.local"}})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("Origin", "http://hmi.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://hmi.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("Origin", "http://elsewhere")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	router := newRouter(&config.SecurityConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}
