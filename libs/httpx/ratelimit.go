package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// quota is the state of one bucket after counting a request.
type quota struct {
	limit    int
	used     int
	resetsIn time.Duration
}

func (q quota) exceeded() bool { return q.used > q.limit }

// write sets the rate limit headers and, when the bucket is exhausted,
// answers 429. It reports whether the request may proceed.
func (q quota) write(w http.ResponseWriter) bool {
	remaining := q.limit - q.used
	if remaining < 0 {
		remaining = 0
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(q.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !q.exceeded() {
		return true
	}
	secs := int((q.resetsIn + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	h.Set("Retry-After", strconv.Itoa(secs))
	http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	return false
}

// Probes and scrapes are never throttled.
func rateLimitExempt(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

// RateLimiter is a per-process fixed-window limiter for single-replica
// deployments and local runs without Redis.
type RateLimiter struct {
	limit   int
	window  time.Duration
	key     KeyFunc
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	used    int
	resetAt time.Time
}

const maxBuckets = 10000

func NewRateLimiter(limit int, window time.Duration, key KeyFunc) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if key == nil {
		key = ClientIP
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		key:     key,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rateLimitExempt(r) {
				next.ServeHTTP(w, r)
				return
			}
			if rl.take(rl.key(r)).write(w) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (rl *RateLimiter) take(key string) quota {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.buckets[key]
	if b == nil || !now.Before(b.resetAt) {
		if len(rl.buckets) >= maxBuckets {
			for k, old := range rl.buckets {
				if !now.Before(old.resetAt) {
					delete(rl.buckets, k)
				}
			}
		}
		b = &bucket{resetAt: now.Add(rl.window)}
		rl.buckets[key] = b
	}
	// Rejected requests count too.
	b.used++
	return quota{limit: rl.limit, used: b.used, resetsIn: b.resetAt.Sub(now)}
}

// ClientIP keys requests by the first X-Forwarded-For hop or the remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
