package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// maxClients bounds the limiter cache; the authority normally sees a handful
// of dashboards
const maxClients = 10000

// RateLimiter keeps one token bucket per polling client
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	rejected int64
	logger   *logger.Logger

	// trustForwarded keys clients on X-Forwarded-For instead of the peer
	// address. Any client can set that header, so it is only safe behind a
	// proxy that overwrites it.
	trustForwarded bool
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps float64, burst int, trustForwarded bool, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		limiters:       make(map[string]*rate.Limiter),
		rate:           rate.Limit(rps),
		burst:          burst,
		logger:         log.MiddlewareLogger("rate_limiter"),
		trustForwarded: trustForwarded,
	}
}

// allow takes a token from the client's bucket
func (rl *RateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[client]
	if !exists {
		if len(rl.limiters) >= maxClients {
			rl.limiters = make(map[string]*rate.Limiter)
			rl.logger.Info("Cleaned up rate limiter cache")
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[client] = limiter
	}

	if !limiter.Allow() {
		rl.rejected++
		return false
	}
	return true
}

// RateLimitMiddleware provides rate limiting functionality
func (rl *RateLimiter) RateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r, rl.trustForwarded)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%.2f", float64(rl.rate)))

			if !rl.allow(clientIP) {
				rl.logger.WithFields(map[string]interface{}{
					"client_ip": clientIP,
					"path":      r.URL.Path,
				}).Warn("Rate limit exceeded")

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP address from the request. Forwarding
// headers are only consulted when trustForwarded is set.
func getClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"rate_limit":     float64(rl.rate),
		"burst_size":     rl.burst,
		"active_clients": len(rl.limiters),
		"rejected":       rl.rejected,
	}
}
