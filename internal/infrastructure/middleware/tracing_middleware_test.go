package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"watchparty/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	router := gin.New()
	router.Use(RequestLogger(logger.NewContextLogger(zap.New(core))))
	router.Use(TracingMiddleware())
	router.GET("/api/v1/party", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/party", nil)
	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	assert.True(t, strings.HasPrefix(requestID, "req_"))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, requestID, fields["request_id"])
	assert.Equal(t, "/api/v1/party", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status_code"])
}

func TestRequestLogger_KeepsCallerRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	router := gin.New()
	router.Use(RequestLogger(logger.NewContextLogger(zap.New(core))))
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "ui-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, "ui-42", w.Header().Get("X-Request-ID"))
	require.Equal(t, 1, logs.FilterMessage("error_occurred").Len())
}
