package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"eisim-progress/internal/api/models"
	"eisim-progress/internal/logger"
)

// ErrorHandler recovers panics into an INTERNAL_ERROR response.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error(c.Request.Context(), "panic in handler",
			logger.String("path", c.Request.URL.Path),
			logger.String("panic", fmt.Sprint(recovered)))

		message := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			message = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: message,
			},
		})
	})
}
