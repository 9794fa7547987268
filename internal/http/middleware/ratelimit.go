package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Limiter decides whether one more request for key fits the namespace policy
type Limiter interface {
	Allow(namespace, key string) (bool, time.Duration)
}

// RateLimitByTenant throttles requests per tenant. It must run after
// RequireTenant. A nil limiter disables throttling.
func RateLimitByTenant(limiter Limiter, namespace string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, _ := r.Context().Value(TenantIDKey).(string)
			if ok, wait := limiter.Allow(namespace, tenantID); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
