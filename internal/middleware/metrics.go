package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/tutor-api/internal/service"
)

// Metrics records per-request duration and counts. Unmatched routes are
// bucketed under a single label so scanners probing random paths cannot
// blow up metric cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
