// Package middleware provides gin middleware shared by all HTTP routes.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muxfetch/muxfetch/internal/logger"
)

// RequestLogger logs completed HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"size", c.Writer.Size(),
			"ip", c.ClientIP(),
		)
	}
}

// ErrorLogger logs errors with context
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			for _, err := range c.Errors {
				logger.Error("request error",
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"error", err.Error(),
					"type", err.Type,
				)
			}
		}
	}
}
