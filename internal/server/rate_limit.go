package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/certihub/internal/observability/logger"
	"go.uber.org/zap"
)

// PublicRateLimit throttles anonymous lookups per client address. A limiter
// failure lets the request through.
func (s *Server) PublicRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.publicLimiter == nil {
			c.Next()
			return
		}

		res, err := s.publicLimiter.Allow(c.Request.Context(), "public:"+c.ClientIP())
		if err != nil {
			obslogger.WithContext(c.Request.Context(), s.log).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}
