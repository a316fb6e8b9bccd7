package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/internal/metrics"
)

// RequestLogger returns a gin middleware for logging requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		// Stop timer
		latency := time.Since(start)
		statusCode := c.Writer.Status()

		entry := log.Info()
		if statusCode >= 500 {
			entry = log.Error()
		} else if statusCode >= 400 {
			entry = log.Warn()
		}

		entry.
			Int("status", statusCode).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("request processed")
	}
}

// RequestMetrics returns a gin middleware recording per-request metrics
func RequestMetrics(collector *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		name := c.Request.Method + " " + c.FullPath()
		collector.RecordTimer(name, time.Since(start).Milliseconds())
		if c.Writer.Status() >= 500 {
			collector.RecordError(name)
		} else {
			collector.RecordSuccess(name)
		}
	}
}
