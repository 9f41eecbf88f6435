// Package webfinger resolves remote handles over the webfinger protocol,
// caches the results, and produces and serves the discovery documents of
// local accounts.
//
// Resolution never fails loudly: malformed handles, cache misses followed by
// transport errors, and missing files all degrade to "no result" so that the
// request pipeline calling into this package keeps running.
package webfinger

import (
	"strings"

	"github.com/tbourn/go-fedi-core/internal/utils"
)

// schemes stripped from URL-style handles before splitting.
var schemes = []string{
	"https://", "http://", "hyper://", "gemini://", "gopher://", "ipfs://", "ipns://",
}

// ParseHandle splits a handle into nickname and domain. It accepts
// "domain/@nick", "domain/users/nick" and "nick@domain" (optionally with a
// URL scheme or a leading "@"). The domain may carry a port. Strings without
// a "." or matching none of the forms yield empty results and ok=false.
func ParseHandle(handle string) (nickname, domain string, ok bool) {
	handle = strings.TrimSpace(handle)
	if !strings.Contains(handle, ".") {
		return "", "", false
	}
	s := handle
	for _, scheme := range schemes {
		s = strings.TrimPrefix(s, scheme)
	}
	s = strings.TrimSuffix(s, "/")

	switch {
	case strings.Contains(s, "/@"):
		domain, nickname, _ = strings.Cut(s, "/@")
	case strings.Contains(s, "/users/"):
		domain, nickname, _ = strings.Cut(s, "/users/")
	case strings.Contains(s, "@"):
		s = strings.TrimPrefix(s, "@")
		var more bool
		nickname, domain, more = strings.Cut(s, "@")
		if !more || strings.Contains(domain, "@") {
			return "", "", false
		}
	default:
		return "", "", false
	}

	// drop anything after the nickname path segment
	nickname, _, _ = strings.Cut(nickname, "/")
	if nickname == "" || domain == "" || strings.Contains(domain, "/") {
		return "", "", false
	}
	return nickname, domain, true
}

// CacheKey returns the cache key "nickname@domain" with the port removed.
func CacheKey(nickname, domain string) string {
	return nickname + "@" + utils.RemovePort(domain)
}
