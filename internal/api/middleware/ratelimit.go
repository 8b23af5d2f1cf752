package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kiranshivaraju/alertsage/internal/api/response"
	"github.com/kiranshivaraju/alertsage/internal/cache"
)

const defaultRequestsPerMinute = 120

// RateLimit limits requests per client address. With a cache it counts in
// fixed one-minute windows shared across replicas; without one it falls back
// to an in-process token bucket per client.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int

	mu     sync.Mutex
	local  map[string]*rate.Limiter
	maxIPs int
}

// NewRateLimit creates a new RateLimit middleware. c may be nil.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{
		cache:          c,
		requestsPerMin: requestsPerMin,
		local:          make(map[string]*rate.Limiter),
		maxIPs:         10000,
	}
}

// Limit applies rate limiting keyed by the client address.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)

		var (
			allowed   bool
			remaining int
		)
		if rl.cache != nil {
			count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(client), 60*time.Second)
			if err != nil {
				// On Redis error, allow the request (fail open)
				next.ServeHTTP(w, r)
				return
			}
			allowed = count <= int64(rl.requestsPerMin)
			remaining = rl.requestsPerMin - int(count)
		} else {
			lim := rl.limiter(client)
			allowed = lim.Allow()
			remaining = int(lim.Tokens())
		}
		if remaining < 0 {
			remaining = 0
		}
		resetTime := time.Now().Add(60 * time.Second).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if !allowed {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests,
				response.CodeRateLimitExceeded, "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.local[client]
	if !ok {
		if len(rl.local) >= rl.maxIPs {
			rl.local = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(float64(rl.requestsPerMin)/60), rl.requestsPerMin)
		rl.local[client] = lim
	}
	return lim
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
