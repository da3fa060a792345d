package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cryptoForecast/internal/adapters/logger"
	"cryptoForecast/internal/ports"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or assigns a new UUID, and makes
// it available to loggers through the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// HTTPRecorder records served requests.
type HTTPRecorder interface {
	RecordHTTPRequest(route, method string, status int, elapsed time.Duration)
}

// Logger logs one line per request and feeds the request metrics.
func Logger(l ports.Logger, recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if recorder != nil {
			recorder.RecordHTTPRequest(route, c.Request.Method, status, elapsed)
		}

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"route":     route,
			"status":    status,
			"latencyMs": elapsed.Milliseconds(),
		}
		switch {
		case status >= 500:
			l.Warn(c.Request.Context(), "Request failed", fields)
		case route == "/health" || route == "/metrics":
			l.Debug(c.Request.Context(), "Request served", fields)
		default:
			l.Info(c.Request.Context(), "Request served", fields)
		}
	}
}
