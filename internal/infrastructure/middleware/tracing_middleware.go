package middleware

import (
	"context"
	"errors"
	"time"

	"watchparty/pkg/logger"
	"watchparty/pkg/tracing"
	"watchparty/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracingMiddleware adds tracing to HTTP requests
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.response_size", int64(c.Writer.Size())),
			attribute.Int64("http.duration_ms", duration.Milliseconds()),
		)

		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// RequestLogger tags each request with an ID and logs it through the context
// logger, so trace and request IDs land on the line.
func RequestLogger(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.NewRequestID()
		}
		c.Header("X-Request-ID", requestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		ctx = c.Request.Context()
		if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
			ctx = context.WithValue(ctx, logger.TraceIDKey, span.SpanContext().TraceID().String())
		}

		status := c.Writer.Status()
		path := utils.TruncateString(c.Request.URL.Path, 256)
		duration := time.Since(start).Milliseconds()
		if status >= 500 {
			cl.LogError(ctx, errors.New(c.Errors.String()), "request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status_code", status),
			)
			return
		}
		cl.LogRequest(ctx, c.Request.Method, path, status, duration)
	}
}
