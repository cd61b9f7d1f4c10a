package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/metrics"
)

// RequestLogger logs request details and records HTTP metrics
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), strconv.Itoa(status), latency.Seconds())

		entry := logger.
			WithField("method", c.Request.Method).
			WithField("path", path).
			WithField("status", status).
			WithField("latency_ms", latency.Milliseconds()).
			WithField("client_ip", c.ClientIP())

		if status >= 500 {
			entry.Error("Request failed")
		} else {
			entry.Info("Request handled")
		}
	}
}
