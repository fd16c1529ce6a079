package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/othello-backend/internal/logger"
)

const correlationHeader = "X-Correlation-ID"

type RequestLog struct {
	log *logger.Logger
}

func NewRequestLog(log *logger.Logger) *RequestLog {
	return &RequestLog{log: log.With("middleware", "RequestLog")}
}

// Handler tags every request with a correlation ID, echoes it back, and
// logs method, path, status and latency on completion.
func (m *RequestLog) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(correlationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Set("correlation_id", correlationID)
		c.Writer.Header().Set(correlationHeader, correlationID)

		start := time.Now()
		c.Next()

		m.log.Info("Request completed",
			"correlation_id", correlationID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
