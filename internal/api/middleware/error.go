package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoForecast/internal/ports"
)

// ErrorHandler recovers panics into the JSON error envelope.
func ErrorHandler(logger ports.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error(c.Request.Context(), fmt.Errorf("panic: %v", recovered), "Recovered from panic", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		message := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			message = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": message,
			},
		})
	})
}
