package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spectramin/orescout/internal/api/response"
	"github.com/spectramin/orescout/internal/cache"
)

// RateLimit enforces a fixed-window per-client request cap backed by Redis,
// keyed by client IP. A limit of zero disables the middleware. The limiter
// fails open: if Redis is unreachable the request proceeds.
func RateLimit(ca cache.Cache, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cache.RateLimitKey(clientIP(r))
			count, err := ca.IncrWithExpiry(r.Context(), key, time.Minute)
			if err != nil {
				slog.Warn("rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(perMinute) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(perMinute) {
				w.Header().Set("Retry-After", "60")
				response.Error(w, http.StatusTooManyRequests,
					"RATE_LIMITED", "Too many requests, slow down", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from the forwarding headers.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
