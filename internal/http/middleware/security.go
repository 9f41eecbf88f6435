package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional headers SecurityHeaders adds.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests. Only set
	// it when TLS terminates at or before this process.
	EnableHSTS bool
	HSTSMaxAge time.Duration // zero means 180 days
	NoStore    bool
	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
	// OnionDomain is the instance's .onion alias. Requests addressed to it
	// never get HSTS; all other requests advertise it via Onion-Location.
	OnionDomain string
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, plus whatever opt enables. When the response already carries
// X-Request-ID, it is added to Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	age := opt.HSTSMaxAge
	if age <= 0 {
		age = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains; preload"
	onion := strings.ToLower(strings.TrimSpace(opt.OnionDomain))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		viaOnion := onion != "" && isOnionHost(c.Request, onion)
		if opt.EnableHSTS && !viaOnion && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if onion != "" && !viaOnion {
			h.Set("Onion-Location", "http://"+onion+c.Request.URL.RequestURI())
		}

		if h.Get(requestIDHeader) != "" {
			const expose = "Access-Control-Expose-Headers"
			switch cur := h.Get(expose); {
			case cur == "":
				h.Set(expose, requestIDHeader)
			case !strings.Contains(cur, requestIDHeader):
				h.Set(expose, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

// isHTTPS reports TLS on the connection or X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func isOnionHost(r *http.Request, onion string) bool {
	host := r.Host
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.EqualFold(host, onion)
}
