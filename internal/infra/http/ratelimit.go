package http

import (
	"net/http"
	"strconv"
	"time"

	"mentora/internal/domain"

	"github.com/gin-gonic/gin"
)

const routeDailySummary = "summaries:daily"

func (s *Server) rateLimit(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enforceRateLimit(c, routeID) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) enforceRateLimit(c *gin.Context, routeID string) bool {
	if s.rateLimiter == nil || s.quota.Unlimited() {
		return true
	}
	principal, ok := getPrincipal(c)
	if !ok {
		return true
	}

	decision, err := s.rateLimiter.Take(c.Request.Context(), domain.QuotaKey(principal.Subject, routeID), s.quota)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", "route", routeID, "fail_closed", s.rateLimitFailClosed, "err", err)
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.QuotaDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.FormatInt(decision.RetryAfter(time.Now()), 10))
		}
	}
}
