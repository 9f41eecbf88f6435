package webfinger

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/utils"
)

const endpointsDir = "wfendpoints"

// Unknown is served when an onion lookup needs a non-empty placeholder.
var Unknown = []byte(`{"nickname":"unknown"}`)

// Endpoints persists local discovery documents under {BaseDir}/wfendpoints.
// Files are the source of truth; there is no in-process copy.
type Endpoints struct {
	BaseDir string
	Log     zerolog.Logger
}

// NewEndpoints returns an Endpoints store rooted at baseDir.
func NewEndpoints(baseDir string, log zerolog.Logger) *Endpoints {
	return &Endpoints{BaseDir: baseDir, Log: log}
}

func (e *Endpoints) path(handle string) string {
	return filepath.Join(e.BaseDir, endpointsDir, strings.ToLower(handle)+".json")
}

// contains reports whether p stays inside the endpoints directory.
func (e *Endpoints) contains(p string) bool {
	rel, err := filepath.Rel(filepath.Join(e.BaseDir, endpointsDir), p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// safeHandle rejects handles that could name a file outside the endpoints
// directory.
func safeHandle(h string) bool {
	return !strings.ContainsAny(h, "/\\\x00") && !strings.Contains(h, "..")
}

// Save writes wf for nickname@domain[:port]. The instance inbox is also
// stored under "{domain}@{domain[:port]}". It reports false on I/O failure.
func (e *Endpoints) Save(nickname, domainName string, port int, wf *domain.Webfinger) bool {
	full := utils.FullDomain(domainName, port)
	if err := os.MkdirAll(filepath.Join(e.BaseDir, endpointsDir), 0o755); err != nil {
		e.Log.Error().Err(err).Msg("webfinger: cannot create endpoints directory")
		return false
	}
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		e.Log.Error().Err(err).Msg("webfinger: cannot encode endpoint")
		return false
	}

	handles := []string{nickname + "@" + full}
	if nickname == instanceInbox {
		handles = append(handles, domainName+"@"+full)
	}
	for _, h := range handles {
		if err := os.WriteFile(e.path(h), data, 0o644); err != nil {
			e.Log.Error().Err(err).Str("handle", h).Msg("webfinger: cannot write endpoint")
			return false
		}
	}
	return true
}

// Remove deletes the stored document for nickname@domain[:port]. A missing
// file is not an error.
func (e *Endpoints) Remove(nickname, domainName string, port int) bool {
	p := e.path(nickname + "@" + utils.FullDomain(domainName, port))
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		e.Log.Error().Err(err).Str("path", p).Msg("webfinger: cannot remove endpoint")
		return false
	}
	return true
}

// Load reads the stored document for handle ("nick@domain[:port]").
func (e *Endpoints) Load(handle string) (*domain.Webfinger, bool) {
	data, err := os.ReadFile(e.path(handle))
	if err != nil {
		return nil, false
	}
	var wf domain.Webfinger
	if err := json.Unmarshal(data, &wf); err != nil {
		e.Log.Warn().Err(err).Str("handle", handle).Msg("webfinger: corrupt endpoint file")
		return nil, false
	}
	return &wf, true
}

// LookupOptions carries the instance addressing needed by Lookup.
type LookupOptions struct {
	Domain      string // clearnet domain, without port
	Port        int
	OnionDomain string
	// Onionify enables rewriting lookups made with the onion domain.
	Onionify bool
}

// ResourceHandle extracts the account handle from a webfinger request path
// or query ("resource=acct:..." or its percent-encoded form).
func ResourceHandle(rawPath string) (string, bool) {
	var rest string
	switch {
	case strings.Contains(rawPath, "resource=acct:"):
		_, rest, _ = strings.Cut(rawPath, "resource=acct:")
	case strings.Contains(rawPath, "resource=acct%3A"), strings.Contains(rawPath, "resource=acct%3a"):
		i := strings.Index(strings.ToLower(rawPath), "resource=acct%3a")
		rest = rawPath[i+len("resource=acct%3a"):]
	default:
		return "", false
	}
	rest, _, _ = strings.Cut(rest, "&")
	if h, err := url.QueryUnescape(strings.TrimSpace(rest)); err == nil {
		rest = h
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// Lookup serves a webfinger request path for a local account and returns
// the raw JSON document. Handles without "@" are rejected, "domain@domain"
// and "actor@domain" address the instance actor. A missing file is a miss,
// except on an onion rewrite where Unknown is returned.
func (e *Endpoints) Lookup(rawPath string, opt LookupOptions) ([]byte, bool) {
	handle, ok := ResourceHandle(rawPath)
	if !ok || !strings.Contains(handle, "@") || !safeHandle(handle) {
		return nil, false
	}
	handle = utils.FullDomain(handle, opt.Port)

	nick, host, _ := strings.Cut(handle, "@")
	if nick == host || nick == utils.RemovePort(host) {
		handle = instanceInbox + "@" + host
	}
	if strings.EqualFold(nick, instanceActorName) {
		handle = instanceInbox + "@" + host
	}

	onionify := false
	if opt.Onionify && opt.OnionDomain != "" && strings.Contains(handle, opt.OnionDomain) {
		handle = strings.ReplaceAll(handle, opt.OnionDomain, opt.Domain)
		onionify = true
	}

	p := e.path(handle)
	if !e.contains(p) {
		return nil, false
	}
	data, err := os.ReadFile(p)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		if onionify {
			return Unknown, true
		}
		return nil, false
	}
	if onionify {
		data = onionRewrite(data, opt.Domain, opt.OnionDomain)
	}
	return data, true
}

// onionRewrite substitutes the clearnet domain with the onion domain inside
// a document; onion services are served over plain http.
func onionRewrite(data []byte, clearnet, onion string) []byte {
	s := string(data)
	s = strings.ReplaceAll(s, "https://"+clearnet, "http://"+onion)
	s = strings.ReplaceAll(s, clearnet, onion)
	return []byte(s)
}
