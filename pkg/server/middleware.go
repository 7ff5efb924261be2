package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/ktx"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/snapforge/snapforge/pkg/ratelimit"
)

const (
	requestIDKey     = "snapforge.request_id"
	requestLoggerKey = "snapforge.logger"
)

// RequestID tags every request with an ID, echoes it in the X-Request-ID
// header and stores a request-scoped logger on the context. Client-supplied
// IDs are kept so callers can correlate across systems. The ID also rides
// the request context so layers below gin (converter, exec) can log it.
func RequestID(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(requestIDKey, id)
		c.Set(requestLoggerKey, logger.With("request_id", id))
		c.Request = c.Request.WithContext(ktx.WithRequestID(c.Request.Context(), id))
		c.Header("X-Request-ID", id)

		c.Next()
	}
}

// RequestLog emits one structured line per completed request.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLogger(c).Info(messages.MsgRequestCompleted,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"client", c.ClientIP(),
		)
	}
}

// SecurityHeaders sets the browser-hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'self'; img-src 'self' data: blob:; script-src 'self'")
		c.Next()
	}
}

// RateLimit rejects requests once the client IP exhausts its window quota.
func RateLimit(store ratelimit.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.Allow(c.ClientIP()) {
			abortWithError(c, reqLogger(c), apierr.New(apierr.CodeRateLimitExceeded, messages.ErrRateLimited))
			return
		}
		c.Next()
	}
}

// RequestIDFrom returns the ID assigned by the RequestID middleware.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// reqLogger returns the request-scoped logger, falling back to the global
// one when middleware has not run (as in bare handler tests).
func reqLogger(c *gin.Context) *logging.Logger {
	if v, ok := c.Get(requestLoggerKey); ok {
		if l, ok := v.(*logging.Logger); ok {
			return l
		}
	}
	return logging.GetLogger()
}
