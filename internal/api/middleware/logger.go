package middleware

import (
	"fmt"
	"time"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Logger writes one access-log line per request. Webhook deliveries can be
// chatty, so the line stays short: method, path, status, latency, client.
func Logger(logger *logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
		)
	})
}
