package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// RateLimitConfig sizes the token buckets of a RateLimiter.
type RateLimitConfig struct {
	Burst        int
	RefillPerMin int
	MaxEntries   int           // sweep early once this many buckets exist
	SweepEvery   time.Duration // default one minute
	TrustProxy   bool          // resolve the client from proxy headers
	Logger       logger.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

type bucketKey struct {
	route string
	ip    string
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter hands out one token bucket per route and client IP, so a
// client throttled on one route is not throttled on another.
type RateLimiter struct {
	cfg    RateLimitConfig
	perSec float64

	mu      sync.Mutex
	buckets map[bucketKey]*tokenBucket
	swept   time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerMin = max(cfg.RefillPerMin, 1)
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RateLimiter{
		cfg:     cfg,
		perSec:  float64(cfg.RefillPerMin) / 60,
		buckets: make(map[bucketKey]*tokenBucket),
		swept:   cfg.Now(),
	}
}

// take spends a token from key's bucket. It returns the whole tokens left,
// or false and the wait until the next token.
func (l *RateLimiter) take(key bucketKey, now time.Time) (int, time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) >= l.cfg.SweepEvery ||
		(l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.sweepLocked(now)
	}

	capacity := float64(l.cfg.Burst)
	b := l.buckets[key]
	if b == nil {
		b = &tokenBucket{tokens: capacity, last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*l.perSec)
		b.last = now
	}

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / l.perSec * float64(time.Second))
		return 0, wait, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// sweepLocked drops buckets that would be full by now: a fresh bucket
// behaves the same.
func (l *RateLimiter) sweepLocked(now time.Time) {
	capacity := float64(l.cfg.Burst)
	for k, b := range l.buckets {
		if b.tokens+now.Sub(b.last).Seconds()*l.perSec >= capacity {
			delete(l.buckets, k)
		}
	}
	l.swept = now
}

// Limit guards one route. Rejected requests get 429 with Retry-After, a
// warning log tagged with the route and client, and a rate_limited_total
// increment.
func (l *RateLimiter) Limit(route string) func(http.Handler) http.Handler {
	limit := strconv.Itoa(l.cfg.Burst)
	log := l.cfg.Logger.With(logger.String("route", route))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, l.cfg.TrustProxy)
			remaining, wait, ok := l.take(bucketKey{route: route, ip: ip}, l.cfg.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				retry := max(int(math.Ceil(wait.Seconds())), 1)
				h.Set("Retry-After", strconv.Itoa(retry))
				log.Warn("rate limit exceeded",
					logger.String("ip", ip),
					logger.Int("retry_after", retry))
				l.cfg.Metrics.RateLimited(route)
				reject(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
