package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/metrics"
)

// Per-IP rate limiting for API calls and login attempts.

const (
	// Standard API: 60 requests/minute per IP
	rateLimitStandardPerMin = 60
	rateLimitStandardBurst  = 60
	// GET requests: 120 requests/minute per IP
	rateLimitGetPerMin = 120
	rateLimitGetBurst  = 120
	// Device control (reboot, shutdown, service actions): 10 requests/minute per IP
	rateLimitControlPerMin = 10
	rateLimitControlBurst  = 10

	// DefaultLoginPerMin and DefaultLoginBurst throttle password attempts per IP.
	DefaultLoginPerMin = 5
	DefaultLoginBurst  = 5

	// limiterCacheSize bounds the number of tracked client IPs per limiter set.
	limiterCacheSize = 4096
)

type rateLimitTier int

const (
	tierControl rateLimitTier = iota
	tierGet
	tierStandard
)

func (t rateLimitTier) perMinute() (int, int) {
	switch t {
	case tierControl:
		return rateLimitControlPerMin, rateLimitControlBurst
	case tierGet:
		return rateLimitGetPerMin, rateLimitGetBurst
	default:
		return rateLimitStandardPerMin, rateLimitStandardBurst
	}
}

func tierForRequest(r *http.Request) rateLimitTier {
	path := strings.ToLower(r.URL.Path)
	if strings.HasPrefix(path, "/api/v1/power/") || strings.HasPrefix(path, "/api/v1/services/systemd/action") {
		return tierControl
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return tierGet
	}
	return tierStandard
}

// ipLimiters keeps one token bucket per client IP; the least recently seen IPs are evicted.
type ipLimiters struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *rate.Limiter]
	perMin int
	burst  int
}

func newIPLimiters(perMin, burst int) *ipLimiters {
	cache, err := lru.New[string, *rate.Limiter](limiterCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &ipLimiters{cache: cache, perMin: perMin, burst: burst}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.cache.Get(ip); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.burst)
	l.cache.Add(ip, lim)
	return lim
}

// take consumes one token. When none is available it returns how long the caller should wait.
func (l *ipLimiters) take(ip string) (remaining int, retryAfter time.Duration, ok bool) {
	lim := l.get(ip)
	reservation := lim.Reserve()
	if !reservation.OK() {
		return 0, time.Minute, false
	}
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return 0, delay, false
	}
	tokens := int(lim.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	return tokens, 0, true
}

// isLoopback returns true for localhost/loopback IPs (127.x.x.x and ::1). The on-device
// dashboard polls from loopback and is exempt from the API limiter.
func isLoopback(ip string) bool {
	ip = strings.Trim(ip, "[]")
	if ip == "::1" || ip == "localhost" {
		return true
	}
	return strings.HasPrefix(ip, "127.")
}

// RateLimit returns middleware that limits API requests per IP.
// Excludes /health, /metrics, and loopback.
// Uses token bucket: 60/min standard, 120/min GET, 10/min device control.
// Returns 429 with Retry-After and sets X-RateLimit-* headers.
func RateLimit() func(http.Handler) http.Handler {
	tiers := map[rateLimitTier]*ipLimiters{}
	for _, t := range []rateLimitTier{tierControl, tierGet, tierStandard} {
		tiers[t] = newIPLimiters(t.perMinute())
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			ip := ClientIP(r)
			if isLoopback(ip) {
				next.ServeHTTP(w, r)
				return
			}
			tier := tierForRequest(r)
			limit, _ := tier.perMinute()
			remaining, retryAfter, ok := tiers[tier].take(ip)
			if !ok {
				writeTooManyRequests(w, limit, retryAfter)
				return
			}
			setRateLimitHeaders(w, limit, remaining, time.Minute)
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit throttles credential submissions (POST) per client IP. Other methods pass.
func LoginRateLimit(perMin, burst int) func(http.Handler) http.Handler {
	if perMin <= 0 {
		perMin = DefaultLoginPerMin
	}
	if burst <= 0 {
		burst = DefaultLoginBurst
	}
	limiters := newIPLimiters(perMin, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			remaining, retryAfter, ok := limiters.take(ClientIP(r))
			if !ok {
				metrics.LoginRateLimitedTotal.Inc()
				writeTooManyRequests(w, perMin, retryAfter)
				return
			}
			setRateLimitHeaders(w, perMin, remaining, time.Minute)
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit, remaining int, reset time.Duration) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))
}

func writeTooManyRequests(w http.ResponseWriter, limit int, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds()) + 1
	if secs > 60 {
		secs = 60
	}
	setRateLimitHeaders(w, limit, 0, retryAfter)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many requests. Please retry later."}`))
}
