package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"eisim-progress/internal/logger"
)

// Logger logs one line per request.
func Logger(log logger.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("took", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			log.Error(c.Request.Context(), "request", fields...)
			return
		}
		log.Debug(c.Request.Context(), "request", fields...)
	}
}
