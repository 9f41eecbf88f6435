// Package middleware holds the Gin middleware shared by every route of the
// instance: request correlation, access logging, panic recovery, metrics,
// rate limiting, idempotency and response hardening.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"

	defaultMaxQuery = 2048
)

// RequestID reuses the inbound X-Request-ID or mints a UUID, and echoes it on
// the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

// requestIDOf returns the correlation id stored by RequestID, falling back to
// the response header.
func requestIDOf(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return c.Writer.Header().Get(requestIDHeader)
}

// AccessLogOptions tunes AccessLog.
type AccessLogOptions struct {
	// MaskHeaders are masked in addition to Authorization, Cookie,
	// Set-Cookie and Signature.
	MaskHeaders []string
	// MaxQuery caps the logged query string. Zero means 2048 bytes.
	MaxQuery int
}

// AccessLog emits one structured line per request with identifiers scrubbed
// from the query and headers, and attaches a request-scoped logger that
// handlers reach through LoggerFrom.
//
// Signed federation requests are tagged with the signer host. The level is
// error for 5xx or when handlers attached errors, warn for 4xx, info
// otherwise.
func AccessLog(opts AccessLogOptions) gin.HandlerFunc {
	sc := defaultScrubber
	masked := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"set-cookie":    true,
		"signature":     true,
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = true
		}
	}
	maxQuery := opts.MaxQuery
	if maxQuery <= 0 {
		maxQuery = defaultMaxQuery
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = sc.scrub(c.Request.URL.Path)
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if masked[strings.ToLower(k)] {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = sc.scrub(strings.Join(vv, ", "))
		}

		lc := log.With().
			Str("request_id", requestIDOf(c)).
			Str("method", c.Request.Method).
			Str("route", route)
		if signer := signerHost(c.GetHeader("Signature")); signer != "" {
			lc = lc.Str("signer", signer)
		}
		if id, ok := Caller(c); ok {
			lc = lc.Str("caller", id)
		}
		l := lc.Logger()
		c.Set(loggerKey, &l)

		c.Next()

		var ev *zerolog.Event
		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			ev = l.Error().Str("errors", c.Errors.String())
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		ev.Str("query", truncate(sc.scrub(c.Request.URL.RawQuery), maxQuery)).
			Str("accept", c.GetHeader("Accept")).
			Int("status", status).
			Int64("bytes_in", c.Request.ContentLength).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// Recovery turns a panic into a JSON 500 carrying the request id. When the
// handler already wrote a response, only the status is aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := requestIDOf(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the logger attached by AccessLog, or the global logger
// when none is attached.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zerolog.Logger); ok {
			return l
		}
	}
	l := log.Logger
	return &l
}

// truncate caps s at max bytes and marks the cut with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
