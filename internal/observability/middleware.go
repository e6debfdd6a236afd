package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestObserver times each api request once, records it against node and
// logs it. Requests to quiet paths only log at trace level.
func RequestObserver(node string, logger zerolog.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			// unmatched routes share one label
			path = "unmatched"
		}
		RecordHTTPRequest(node, c.Request.Method, path, status, elapsed)

		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			if _, ok := skip[path]; ok {
				event = logger.Trace()
			}
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			event = event.Str("errors", msg)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", elapsed).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("api request")
	}
}
