// AngelaMos | 2026
// limiter.go

package stubidp

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client IP. One process,
// one map; there is nothing distributed about a dev IdP.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
	burst    int
}

func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMinute,
		burst:    burst,
	}
}

func (l *LoginLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.burst)
		l.limiters[key] = limiter
	}

	return limiter.Allow()
}

func (l *LoginLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(60/l.perMin+1))
			writeError(
				w,
				http.StatusTooManyRequests,
				"RATE_LIMITED",
				"too many login attempts, slow down",
			)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
