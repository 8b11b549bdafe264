package middleware

import (
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core/throttle"
	"github.com/storycard/storycard/internal/metrics"
	"github.com/storycard/storycard/internal/observability"
)

// Rate limit response headers
const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RetryAfterHeader         = "Retry-After"
)

const rateLimitedCode = "RATE_LIMITED"

// Throttle rejects requests over the policy's per-client limit with 429 and a
// Retry-After header. Allowed requests carry the remaining quota.
func Throttle(limiter *throttle.Limiter, policy throttle.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)
			result := limiter.CheckPolicy(policy, client)
			metrics.RecordThrottleDecision(policy.Name, result.Allowed)

			w.Header().Set(RateLimitLimitHeader, strconv.Itoa(policy.Limit))
			w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(result.Remaining))

			if result.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			requestID := GetRequestID(r.Context())
			envelope := errors.NewErrorEnvelope(rateLimitedCode, "Too many requests. Please wait a minute and try again.").
				WithCorrelationID(requestID).
				WithDetails(map[string]interface{}{
					"retry_after_seconds": result.RetryAfterSeconds,
					"policy":              policy.Name,
				})

			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Request throttled",
					zap.String("policy", policy.Name),
					zap.String("client_ip", client),
					zap.Int("retry_after_seconds", result.RetryAfterSeconds),
					zap.String("request_id", requestID))
			}

			metrics.RecordError(rateLimitedCode, http.StatusTooManyRequests)
			metrics.RecordErrorByEndpoint(EndpointPattern(r), rateLimitedCode)

			w.Header().Set(RetryAfterHeader, strconv.Itoa(result.RetryAfterSeconds))
			writeErrorResponse(w, envelope, http.StatusTooManyRequests)
		})
	}
}
