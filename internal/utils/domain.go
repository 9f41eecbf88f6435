// Package utils provides small helpers for composing federation addresses
// (domains, handles, actor URLs) that are shared across layers.
package utils

import (
	"strconv"
	"strings"
)

// FullDomain appends ":port" to domain unless the port is a default one
// (0, 80, 443) or the domain already carries a port.
//
// Example:
//
//	utils.FullDomain("example.com", 8080) // "example.com:8080"
//	utils.FullDomain("example.com", 443)  // "example.com"
func FullDomain(domain string, port int) string {
	if port == 0 || port == 80 || port == 443 || strings.Contains(domain, ":") {
		return domain
	}
	return domain + ":" + strconv.Itoa(port)
}

// RemovePort strips a trailing ":port" from domain.
func RemovePort(domain string) string {
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		if _, err := strconv.Atoi(domain[i+1:]); err == nil {
			return domain[:i]
		}
	}
	return domain
}

// ActorURL returns the actor id for a local nickname. Group nicknames
// (prefixed "!") live under /c/ instead of /users/.
func ActorURL(httpPrefix, domain, nickname string) string {
	if strings.HasPrefix(nickname, "!") {
		return httpPrefix + "://" + domain + "/c/" + strings.TrimPrefix(nickname, "!")
	}
	return httpPrefix + "://" + domain + "/users/" + nickname
}

// HandleToActorURL rewrites a "nick@domain" handle into an actor URL.
// Values that already look like URLs are returned unchanged; values that
// are not handles report false.
func HandleToActorURL(httpPrefix, handle string) (string, bool) {
	handle = strings.TrimSpace(handle)
	if strings.Contains(handle, "://") {
		return handle, true
	}
	nick, domain, ok := strings.Cut(handle, "@")
	if !ok || nick == "" || domain == "" {
		return "", false
	}
	return ActorURL(httpPrefix, domain, nick), true
}

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// not a number. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
