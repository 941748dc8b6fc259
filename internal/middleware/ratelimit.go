package middleware

import (
	"fmt"
	"net/http"
	"time"

	"copro-smart-go/pkg/log"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// RateLimit allows limit requests per client IP in every window. Apply it to
// credential endpoints.
func RateLimit(window time.Duration, limit uint) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  window,
		Limit: limit,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: rateLimitExceeded,
		KeyFunc:      clientKey,
	})
}

func clientKey(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitExceeded(c *gin.Context, info ratelimit.Info) {
	retry := time.Until(info.ResetTime).Round(time.Second)
	log.Warnf("[RateLimit] %s exceeded %d requests on %s", c.ClientIP(), info.Limit, c.FullPath())
	abort(c, http.StatusTooManyRequests, fmt.Sprintf("too many requests, retry in %s", retry))
}
