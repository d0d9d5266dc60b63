package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorRate  rate.Limit = 5
	visitorBurst            = 30
	visitorTTL              = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterRegistry tracks one token bucket per client IP. Entries idle
// longer than visitorTTL are swept by a janitor goroutine.
type limiterRegistry struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

var registry = &limiterRegistry{visitors: make(map[string]*visitor)}
var janitorOnce sync.Once

func (reg *limiterRegistry) get(ip string) *rate.Limiter {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	v, ok := reg.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(visitorRate, visitorBurst)}
		reg.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (reg *limiterRegistry) sweep() {
	for range time.Tick(time.Minute) {
		reg.mu.Lock()
		for ip, v := range reg.visitors {
			if time.Since(v.lastSeen) > visitorTTL {
				delete(reg.visitors, ip)
			}
		}
		reg.mu.Unlock()
	}
}

// RateLimitMiddleware enforces a per-IP token bucket. The client IP is
// taken from X-Forwarded-For when present, since the service sits behind
// a proxy in production.
func RateLimitMiddleware(next http.Handler) http.Handler {
	janitorOnce.Do(func() { go registry.sweep() })

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		if !registry.get(ip).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
