package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"watchparty/internal/core/domain"
	"watchparty/internal/infrastructure/catalog"
	"watchparty/pkg/circuitbreaker"
	apperrors "watchparty/pkg/errors"
	"watchparty/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAsAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   apperrors.ErrorCode
		status int
	}{
		{"not host", domain.ErrNotHost, apperrors.ErrCodeNotHost, http.StatusForbidden},
		{"cooldown", domain.ErrSearchCooldown, apperrors.ErrCodeCooldown, http.StatusTooManyRequests},
		{"wrapped party not found", fmt.Errorf("join party: %w", domain.ErrPartyNotFound), apperrors.ErrCodeNotFound, http.StatusNotFound},
		{"not in party", domain.ErrNotInParty, apperrors.ErrCodeConflict, http.StatusConflict},
		{"already in party", domain.ErrAlreadyInParty, apperrors.ErrCodeConflict, http.StatusConflict},
		{"name required", domain.ErrNameRequired, apperrors.ErrCodeInvalidInput, http.StatusBadRequest},
		{"invalid invite", domain.ErrInvalidInvite, apperrors.ErrCodeInvalidInput, http.StatusBadRequest},
		{"no candidates", domain.ErrNoCandidates, apperrors.ErrCodeElectionFailed, http.StatusServiceUnavailable},
		{"breaker open", fmt.Errorf("search: %w", circuitbreaker.ErrOpen), apperrors.ErrCodeCatalogUnavailable, http.StatusBadGateway},
		{"catalog disabled", catalog.ErrCatalogDisabled, apperrors.ErrCodeCatalogUnavailable, http.StatusBadGateway},
		{"struct validation", &validation.StructError{Fields: []validation.FieldError{{Field: "videoId", Code: "required"}}}, apperrors.ErrCodeInvalidInput, http.StatusBadRequest},
		{"app error passes through", apperrors.NewRateLimitError(), apperrors.ErrCodeRateLimit, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), apperrors.ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := AsAppError(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}
}

func TestErrorHandlerMiddleware_RendersError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.POST("/queue/shuffle", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("toggle: %w", domain.ErrNotHost))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/queue/shuffle", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_HOST", body["error"])
	assert.NotContains(t, body, "details")
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop().Sugar()))
	router.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
