package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger logs each status request together with the relay's role and
// its state at the time of the response.
func RequestLogger(logger zerolog.Logger, reporter Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := requestPath(c)
		stats := reporter.Snapshot()

		// /ready answers 503 until the relay is connected; that is not a fault.
		event := logger.Debug()
		switch {
		case status == http.StatusServiceUnavailable:
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		event.
			Str("role", stats.Role).
			Str("relay_state", string(stats.State)).
			Uint64("relay_frames", stats.Frames).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("status_request")
	}
}

func RequestMetricsMiddleware(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(role, c.Request.Method, requestPath(c), c.Writer.Status(), time.Since(start))
	}
}

// requestPath returns the route template, or the raw path for unmatched
// requests.
func requestPath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
