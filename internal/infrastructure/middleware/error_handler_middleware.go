package middleware

import (
	"errors"
	"net/http"

	"watchparty/internal/core/domain"
	"watchparty/internal/infrastructure/catalog"
	"watchparty/pkg/circuitbreaker"
	apperrors "watchparty/pkg/errors"
	"watchparty/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := AsAppError(err)

		fields := []interface{}{
			"code", appErr.Code,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err.Error(),
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw("request failed", fields...)
		} else {
			logger.Debugw("request rejected", fields...)
		}

		body := gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		}
		if len(appErr.Context) > 0 {
			body["details"] = appErr.Context
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}

// AsAppError maps session and catalog errors onto stable API codes. Errors
// that are already AppErrors pass through unchanged.
func AsAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	var structErr *validation.StructError
	switch {
	case errors.As(err, &structErr):
		appErr := apperrors.NewInvalidInputError(structErr.Error())
		for _, f := range structErr.Fields {
			appErr.WithContext(f.Field, f.Code)
		}
		return appErr
	case errors.Is(err, domain.ErrNotHost):
		return apperrors.NewNotHostError()
	case errors.Is(err, domain.ErrSearchCooldown):
		return apperrors.NewCooldownError("searching too fast, try again shortly")
	case errors.Is(err, domain.ErrPartyNotFound):
		return apperrors.NewNotFoundError("party")
	case errors.Is(err, domain.ErrGuestNotFound):
		return apperrors.NewNotFoundError("guest")
	case errors.Is(err, domain.ErrEmptyPlaylist):
		return apperrors.NewNotFoundError("playlist")
	case errors.Is(err, domain.ErrNotInParty), errors.Is(err, domain.ErrAlreadyInParty):
		return apperrors.NewConflictError(err.Error())
	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrInvalidInvite):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, domain.ErrNoCandidates):
		return apperrors.NewElectionError(err)
	case errors.Is(err, circuitbreaker.ErrOpen), errors.Is(err, catalog.ErrCatalogDisabled):
		return apperrors.NewCatalogError(err)
	}
	return apperrors.WrapError(err, apperrors.ErrCodeInternal, "internal server error", http.StatusInternalServerError)
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(apperrors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
