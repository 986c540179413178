package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
)

// HTTPMetrics records request counts, latency and in-flight requests. Routes
// are labelled by their pattern to keep cardinality bounded.
func HTTPMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()
		c.Next()
		m.RequestFinished(c.Request.Method, routePattern(c), c.Writer.Status(), time.Since(start))
	}
}

// routePattern returns the matched route, e.g. "/api/v1/objects/:class/:id".
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
