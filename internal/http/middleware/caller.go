package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderCaller names the local account a request acts as. It is only
// honored behind TrustCallerHeader.
const HeaderCaller = "X-User-ID"

// ctxKeyCaller is where authentication middleware stores the caller.
const ctxKeyCaller = "userID"

// anonymousCaller keys idempotency records and rate buckets of requests
// without a caller. The hyphen keeps it out of the nickname space.
const anonymousCaller = "anon-caller"

// TrustCallerHeader copies X-User-ID into the caller slot when nothing
// upstream has set one. Mount it only when a proxy in front of this
// process authenticates users and owns the header.
func TrustCallerHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Caller(c); !ok {
			if h := strings.TrimSpace(c.GetHeader(HeaderCaller)); h != "" {
				c.Set(ctxKeyCaller, h)
			}
		}
		c.Next()
	}
}

// Caller returns the local account an authentication layer bound to the
// request; ok is false for anonymous requests.
func Caller(c *gin.Context) (string, bool) {
	if c == nil {
		return "", false
	}
	if v, ok := c.Get(ctxKeyCaller); ok {
		if s, _ := v.(string); s != "" {
			return s, true
		}
	}
	return "", false
}

// CallerKey is Caller with anonymous requests folded into one shared key.
func CallerKey(c *gin.Context) string {
	if id, ok := Caller(c); ok {
		return id
	}
	return anonymousCaller
}
