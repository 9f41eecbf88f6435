package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request onto the bucket it draws tokens from.
type KeyFunc func(*gin.Context) string

var keyIDRE = regexp.MustCompile(`keyId="([^"]+)"`)

// KeyByCaller buckets local callers by account, signed federation requests
// by the host of their signing key, and everything else by client IP.
// Keys carry a namespace prefix ("user:", "host:", "ip:").
func KeyByCaller() KeyFunc {
	return func(c *gin.Context) string {
		if id, ok := Caller(c); ok {
			return "user:" + id
		}
		if host := signerHost(c.GetHeader("Signature")); host != "" {
			return "host:" + host
		}
		return "ip:" + c.ClientIP()
	}
}

// signerHost returns the lower-cased host of the keyId in an HTTP signature
// header, or "".
func signerHost(sig string) string {
	m := keyIDRE.FindStringSubmatch(sig)
	if m == nil {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter is a process-local token bucket limiter with one bucket per
// key. Buckets idle for longer than the TTL are swept at most once per TTL.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps tokens per second with the given burst (at least
// 1) per key.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		key:     key,
		ttl:     10 * time.Minute,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which does not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Get(ctxKeyRateBypass)
	v, _ := b.(bool)
	return v
}

// Handler rejects requests over the limit with 429 and Retry-After: 1.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.limiter(rl.key(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": requestIDOf(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
