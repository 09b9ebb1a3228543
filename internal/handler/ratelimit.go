package handler

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/juju/ratelimit"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
)

// Per-client rate limiting on the credential endpoints. One token bucket per
// source IP; full buckets are evicted periodically so the map does not grow
// with every visitor ever seen.

type rateLimiter struct {
	mu       sync.RWMutex
	clients  map[string]*ratelimit.Bucket
	rate     float64
	capacity int64
}

func newRateLimiter(rate float64, capacity int64) *rateLimiter {
	rl := &rateLimiter{
		clients:  make(map[string]*ratelimit.Bucket),
		rate:     rate,
		capacity: capacity,
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) bucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	b, ok := rl.clients[clientIP]
	rl.mu.RUnlock()
	if ok {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok = rl.clients[clientIP]; !ok {
		b = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
		rl.clients[clientIP] = b
	}
	return b
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for ip, b := range rl.clients {
			if b.Available() == b.Capacity() {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware throttles per client IP, answering 429 once the
// bucket runs dry. Intended for the public auth group, where credential
// stuffing is the concern.
func RateLimitMiddleware(rate float64, capacity int64, metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	rl := newRateLimiter(rate, capacity)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := r.RemoteAddr
			if host, _, err := net.SplitHostPort(clientIP); err == nil {
				clientIP = host
			}

			if rl.bucket(clientIP).TakeAvailable(1) < 1 {
				metrics.IncrRateLimited()
				logger.Warn("rate limit exceeded",
					zap.String("client_ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Muitas tentativas. Tente novamente em instantes")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
