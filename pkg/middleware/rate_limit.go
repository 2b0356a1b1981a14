package middleware

import (
	"net/http"
	"strconv"

	"musicbridge/internal/model"
	"musicbridge/internal/service"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware rejects clients that exceeded their per-minute budget
func RateLimitMiddleware(rateLimitService *service.RateLimitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !rateLimitService.IsAllowed(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Status:  "error",
				Message: "Too many requests. Please try again later.",
			})
			return
		}

		if remaining := rateLimitService.GetRemaining(ip); remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}
