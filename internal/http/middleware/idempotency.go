package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen key of an unsafe request
// such as account registration.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions bounds accepted keys. MaxLen defaults to 200 and
// Pattern to ^[A-Za-z0-9._~\-:]+$.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a completed, unexpired request exists
// for (caller, scope, key). Lookup errors never block the request.
type IdempotencyLookup func(ctx context.Context, caller, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator validates the Idempotency-Key header when present and
// stashes it for handlers. If lookup finds a completed request for the same
// caller and route, the request is marked as a replay and exempted from
// rate limiting. Replays still reach the handler, which decides what to
// serve. Invalid keys are rejected with 400.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			found, err := lookup(c.Request.Context(), CallerKey(c), IdempotencyScope(c), key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if found {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the request repeats a completed one.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyScope is the route template of the request, or its raw path
// when no route matched. Keys are unique per caller and scope.
func IdempotencyScope(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	if c.Request != nil && c.Request.URL != nil {
		return c.Request.URL.Path
	}
	return ""
}
