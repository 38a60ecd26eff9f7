package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/serroba/storefront-edge-go/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "rate_limit:"
	unknownClient = "unknown"
)

// DecisionObserver is told about every rate limit decision.
type DecisionObserver interface {
	RateLimitDecision(allowed bool)
}

type errorBody struct {
	Error string `json:"error"`
}

// RateLimit returns a middleware that rejects clients over their window budget
// with 429 before anything else sees the request.
// Rejections are answered without logging; only limiter failures are logged.
func RateLimit(limiter ratelimit.Limiter, observer DecisionObserver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), ClientKey(r))
			if err != nil {
				logger.Error("rate limit check failed", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Internal server error")

				return
			}

			if observer != nil {
				observer.RateLimitDecision(decision.Allowed)
			}

			if !decision.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many requests")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey builds the rate limit key for a request from its forwarded client address.
// Requests carrying no address share the "unknown" bucket.
func ClientKey(r *http.Request) string {
	return keyPrefix + clientIP(r)
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(r *http.Request) string {
	// X-Forwarded-For may list several hops; the first is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return unknownClient
}

// retryAfterSeconds renders d as whole seconds, rounding up.
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
