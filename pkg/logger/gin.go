package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-Id"

// Middleware assigns a request id, attaches a request-scoped logger to both
// the gin context and the request context, and logs one summary per request.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
		}
		switch {
		case len(c.Errors) > 0:
			attrs = append(attrs, "errors", c.Errors.String())
			reqLogger.Error("request", attrs...)
		case c.Request.Method == "GET" && c.Writer.Status() < 400:
			// health probes hit this path constantly
			reqLogger.Debug("request", attrs...)
		default:
			reqLogger.Info("request", attrs...)
		}
	}
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
