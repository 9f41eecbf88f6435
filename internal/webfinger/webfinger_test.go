package webfinger

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/identity"
)

// ---------- helpers ----------

func testPublicKeyPEM(t *testing.T) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("rsa: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// ---------- ParseHandle ----------

func TestParseHandle(t *testing.T) {
	cases := []struct {
		in       string
		nick     string
		domain   string
		expectOK bool
	}{
		{"user@example.com", "user", "example.com", true},
		{"@user@example.com", "user", "example.com", true},
		{"https://example.com/@user", "user", "example.com", true},
		{"example.com/@user", "user", "example.com", true},
		{"https://example.com/users/user", "user", "example.com", true},
		{"http://example.com:8080/users/user/", "user", "example.com:8080", true},
		{"https://example.com/@user/109876", "user", "example.com", true},
		{"not-a-handle", "", "", false},
		{"example.com", "", "", false},
		{"a@b@example.com", "", "", false},
		{"user@", "", "", false},
	}
	for _, tc := range cases {
		nick, dom, ok := ParseHandle(tc.in)
		if nick != tc.nick || dom != tc.domain || ok != tc.expectOK {
			t.Fatalf("ParseHandle(%q) = (%q,%q,%v); want (%q,%q,%v)",
				tc.in, nick, dom, ok, tc.nick, tc.domain, tc.expectOK)
		}
	}
}

func TestCacheKey_StripsPort(t *testing.T) {
	if got := CacheKey("alice", "example.com:8443"); got != "alice@example.com" {
		t.Fatalf("CacheKey = %q", got)
	}
}

// ---------- Resolver ----------

func remoteServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/.well-known/webfinger" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Accept"); got != ContentTypeJRD {
			t.Errorf("Accept = %q", got)
		}
		res := r.URL.Query().Get("resource")
		if !strings.HasPrefix(res, "acct:alice@") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ContentTypeJRD)
		_ = json.NewEncoder(w).Encode(domain.Webfinger{
			Subject: res,
			Links: []domain.Link{
				{Rel: "self", Type: "application/activity+json", Href: "http://" + r.Host + "/users/alice"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_CachesAfterFirstFetch(t *testing.T) {
	var calls int32
	srv := remoteServer(t, &calls)
	host := strings.TrimPrefix(srv.URL, "http://")

	r := NewResolver(NewCache(), time.Second, WithHTTPPrefix("http"), WithHTTPClient(srv.Client()))

	first, ok := r.Resolve(context.Background(), "alice@"+host)
	if !ok {
		t.Fatalf("first resolve failed")
	}
	if first.ActorURL() != "http://"+host+"/users/alice" {
		t.Fatalf("actor url = %q", first.ActorURL())
	}
	if !strings.HasPrefix(first.Subject, "acct:alice@127.0.0.1") {
		t.Fatalf("resource must use port-less domain, got %q", first.Subject)
	}

	second, ok := r.Resolve(context.Background(), "https://"+host+"/@alice")
	if !ok || second != first {
		t.Fatalf("second resolve should return cached document")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly 1 network call, got %d", n)
	}
	if r.Cache().Len() != 1 {
		t.Fatalf("cache size = %d", r.Cache().Len())
	}
}

func TestResolve_FailuresAreEmptyResults(t *testing.T) {
	var calls int32
	srv := remoteServer(t, &calls)
	host := strings.TrimPrefix(srv.URL, "http://")
	r := NewResolver(nil, time.Second, WithHTTPPrefix("http"), WithHTTPClient(srv.Client()))

	// remote 404
	if _, ok := r.Resolve(context.Background(), "bob@"+host); ok {
		t.Fatalf("404 should be a miss")
	}
	// malformed handle never reaches the network
	before := atomic.LoadInt32(&calls)
	if _, ok := r.Resolve(context.Background(), "nonsense"); ok {
		t.Fatalf("malformed handle resolved")
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatalf("malformed handle caused a request")
	}
	if r.Cache().Len() != 0 {
		t.Fatalf("failures must not be cached")
	}

	// transport failure
	dead := httptest.NewServer(http.NotFoundHandler())
	deadHost := strings.TrimPrefix(dead.URL, "http://")
	dead.Close()
	if _, ok := r.Resolve(context.Background(), "alice@"+deadHost); ok {
		t.Fatalf("transport error should be a miss")
	}
}

func TestResolve_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)
	host := strings.TrimPrefix(slow.URL, "http://")

	r := NewResolver(nil, 50*time.Millisecond, WithHTTPPrefix("http"))
	start := time.Now()
	if _, ok := r.Resolve(context.Background(), "alice@"+host); ok {
		t.Fatalf("slow server should not resolve")
	}
	if time.Since(start) > 250*time.Millisecond {
		t.Fatalf("timeout not applied")
	}
}

func TestWithHTTPClient_LeavesCallerClientAlone(t *testing.T) {
	var calls int32
	srv := remoteServer(t, &calls)
	host := strings.TrimPrefix(srv.URL, "http://")

	shared := srv.Client()
	shared.Timeout = 0
	r := NewResolver(nil, 2*time.Second, WithHTTPPrefix("http"), WithHTTPClient(shared))
	if shared.Timeout != 0 {
		t.Fatalf("caller client timeout changed to %v", shared.Timeout)
	}
	if got := r.client.GetClient().Timeout; got != 2*time.Second {
		t.Fatalf("resolver timeout = %v", got)
	}
	if _, ok := r.Resolve(context.Background(), "alice@"+host); !ok {
		t.Fatalf("resolve through copied client failed")
	}
}

// ---------- CreateEndpoint ----------

func TestCreateEndpoint_Person(t *testing.T) {
	wf, err := CreateEndpoint(Account{
		Nickname:     "alice",
		Domain:       "example.com",
		Port:         8080,
		HTTPPrefix:   "https",
		PublicKeyPEM: testPublicKeyPEM(t),
	})
	if err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}
	if wf.Subject != "acct:alice@example.com" {
		t.Fatalf("subject = %q", wf.Subject)
	}
	if wf.ActorURL() != "https://example.com:8080/users/alice" {
		t.Fatalf("self = %q", wf.ActorURL())
	}
	want := []string{"https://example.com:8080/@alice", "https://example.com:8080/users/alice"}
	if strings.Join(wf.Aliases, ",") != strings.Join(want, ",") {
		t.Fatalf("aliases = %v", wf.Aliases)
	}
	if l, ok := wf.LinkByRel(RelProfilePage, ""); !ok || l.Href != "https://example.com:8080/@alice" {
		t.Fatalf("profile page = %+v", l)
	}
	if _, ok := wf.LinkByRel(RelUpdatesFrom, "application/atom+xml"); !ok {
		t.Fatalf("missing atom link")
	}
	mk, ok := wf.LinkByRel(RelMagicPublicKey, "")
	if !ok || !strings.HasPrefix(mk.Href, "data:application/magic-public-key,RSA.") {
		t.Fatalf("magic key = %+v", mk)
	}
	parts := strings.Split(strings.TrimPrefix(mk.Href, "data:application/magic-public-key,RSA."), ".")
	if len(parts) != 2 || parts[1] != "AQAB" {
		t.Fatalf("magic key components = %v", parts)
	}
}

func TestCreateEndpoint_InstanceActor(t *testing.T) {
	pemKey := testPublicKeyPEM(t)
	for _, nick := range []string{"inbox", "example.com"} {
		wf, err := CreateEndpoint(Account{Nickname: nick, Domain: "example.com", HTTPPrefix: "https", PublicKeyPEM: pemKey})
		if err != nil {
			t.Fatalf("CreateEndpoint(%s): %v", nick, err)
		}
		if wf.Subject != "acct:example.com@example.com" {
			t.Fatalf("subject = %q", wf.Subject)
		}
		if wf.ActorURL() != "https://example.com/actor" {
			t.Fatalf("self = %q", wf.ActorURL())
		}
		if l, _ := wf.LinkByRel(RelProfilePage, ""); l.Href != "https://example.com/about/more?instance_actor=true" {
			t.Fatalf("profile = %q", l.Href)
		}
	}
}

func TestCreateEndpoint_GroupAndBadKey(t *testing.T) {
	wf, err := CreateEndpoint(Account{Nickname: "cooks", Domain: "example.com", HTTPPrefix: "https", PublicKeyPEM: testPublicKeyPEM(t), Group: true})
	if err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}
	if wf.ActorURL() != "https://example.com/c/cooks" {
		t.Fatalf("group self = %q", wf.ActorURL())
	}
	if _, err := CreateEndpoint(Account{Nickname: "x", Domain: "example.com", PublicKeyPEM: "nope"}); err == nil {
		t.Fatalf("expected error for bad key")
	}
}

// ---------- Endpoints store / lookup ----------

func newStore(t *testing.T) *Endpoints {
	t.Helper()
	return NewEndpoints(t.TempDir(), zerolog.Nop())
}

func TestSaveAndLookup(t *testing.T) {
	e := newStore(t)
	wf := &domain.Webfinger{Subject: "acct:Alice@example.com", Links: []domain.Link{{Rel: "self", Href: "https://example.com/users/Alice"}}}
	if !e.Save("Alice", "example.com", 443, wf) {
		t.Fatalf("Save failed")
	}
	if _, err := os.Stat(filepath.Join(e.BaseDir, "wfendpoints", "alice@example.com.json")); err != nil {
		t.Fatalf("file not lower-cased: %v", err)
	}

	opt := LookupOptions{Domain: "example.com", Port: 443}
	for _, path := range []string{
		"/.well-known/webfinger?resource=acct:alice@example.com",
		"/.well-known/webfinger?resource=acct%3Aalice%40example.com",
		"/.well-known/webfinger?resource=acct:alice@example.com&rel=self",
	} {
		data, ok := e.Lookup(path, opt)
		if !ok {
			t.Fatalf("Lookup(%q) missed", path)
		}
		var got domain.Webfinger
		if err := json.Unmarshal(data, &got); err != nil || got.Subject != wf.Subject {
			t.Fatalf("Lookup(%q) = %s (%v)", path, data, err)
		}
	}

	if _, ok := e.Lookup("/.well-known/webfinger?resource=acct:bob@example.com", opt); ok {
		t.Fatalf("missing account found")
	}
	if _, ok := e.Lookup("/.well-known/webfinger?resource=acct:alice", opt); ok {
		t.Fatalf("handle without @ accepted")
	}
	if _, ok := e.Lookup("/.well-known/webfinger", opt); ok {
		t.Fatalf("no resource accepted")
	}
}

func TestLookup_RejectsPathsOutsideEndpoints(t *testing.T) {
	root := t.TempDir()
	e := NewEndpoints(filepath.Join(root, "base"), zerolog.Nop())
	if !e.Save("alice", "example.com", 443, &domain.Webfinger{Subject: "acct:alice@example.com"}) {
		t.Fatalf("Save failed")
	}
	if err := os.MkdirAll(filepath.Join(root, "outside"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "outside", "leak.json"), []byte(`{"secret":"outside-basedir"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	opt := LookupOptions{Domain: "example.com", Port: 443}
	for _, path := range []string{
		"/.well-known/webfinger?resource=acct:x@y/../../../outside/leak",
		"/.well-known/webfinger?resource=acct:x@y%2F..%2F..%2F..%2Foutside%2Fleak",
		"/.well-known/webfinger?resource=acct%3Ax%40y%2F..%2F..%2F..%2Foutside%2Fleak",
		"/.well-known/webfinger?resource=acct:x@y\\..\\outside\\leak",
		"/.well-known/webfinger?resource=acct:..@example.com",
	} {
		if data, ok := e.Lookup(path, opt); ok {
			t.Fatalf("Lookup(%q) = %s; want miss", path, data)
		}
	}
}

func TestEndpointsContains(t *testing.T) {
	e := NewEndpoints(filepath.Join(t.TempDir(), "base"), zerolog.Nop())
	dir := filepath.Join(e.BaseDir, "wfendpoints")
	cases := []struct {
		p    string
		want bool
	}{
		{filepath.Join(dir, "alice@example.com.json"), true},
		{filepath.Join(dir, "..", "x.json"), false},
		{filepath.Join(dir, "..", "..", "outside", "leak.json"), false},
		{dir, true},
	}
	for _, tc := range cases {
		if got := e.contains(tc.p); got != tc.want {
			t.Fatalf("contains(%q) = %v; want %v", tc.p, got, tc.want)
		}
	}
}

func TestRemove(t *testing.T) {
	e := newStore(t)
	wf := &domain.Webfinger{Subject: "acct:bob@example.com:8080"}
	if !e.Save("bob", "example.com", 8080, wf) {
		t.Fatalf("Save failed")
	}
	if !e.Remove("bob", "example.com", 8080) {
		t.Fatalf("Remove failed")
	}
	if _, ok := e.Load("bob@example.com:8080"); ok {
		t.Fatalf("endpoint still loadable")
	}
	if !e.Remove("bob", "example.com", 8080) {
		t.Fatalf("removing a missing endpoint should succeed")
	}
}

func TestInstanceActorAliases(t *testing.T) {
	e := newStore(t)
	wf := &domain.Webfinger{Subject: "acct:example.com@example.com"}
	if !e.Save("inbox", "example.com", 0, wf) {
		t.Fatalf("Save failed")
	}
	for _, name := range []string{"inbox@example.com.json", "example.com@example.com.json"} {
		if _, err := os.Stat(filepath.Join(e.BaseDir, "wfendpoints", name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	opt := LookupOptions{Domain: "example.com"}
	for _, res := range []string{"example.com@example.com", "actor@example.com", "inbox@example.com"} {
		if _, ok := e.Lookup("/.well-known/webfinger?resource=acct:"+res, opt); !ok {
			t.Fatalf("instance actor lookup %q missed", res)
		}
	}
}

func TestLookup_Onionify(t *testing.T) {
	e := newStore(t)
	wf := &domain.Webfinger{
		Subject: "acct:alice@example.com",
		Links:   []domain.Link{{Rel: "self", Type: "application/activity+json", Href: "https://example.com/users/alice"}},
	}
	e.Save("alice", "example.com", 0, wf)
	opt := LookupOptions{Domain: "example.com", OnionDomain: "abc.onion", Onionify: true}

	data, ok := e.Lookup("/.well-known/webfinger?resource=acct:alice@abc.onion", opt)
	if !ok {
		t.Fatalf("onion lookup missed")
	}
	if strings.Contains(string(data), "example.com") || !strings.Contains(string(data), "http://abc.onion/users/alice") {
		t.Fatalf("document not rewritten: %s", data)
	}

	data, ok = e.Lookup("/.well-known/webfinger?resource=acct:nobody@abc.onion", opt)
	if !ok || string(data) != string(Unknown) {
		t.Fatalf("onion miss should return placeholder, got %s %v", data, ok)
	}

	opt.Onionify = false
	if _, ok := e.Lookup("/.well-known/webfinger?resource=acct:alice@abc.onion", opt); ok {
		t.Fatalf("onion rewrite applied while disabled")
	}
}

func TestSave_ReportsIOFailure(t *testing.T) {
	base := t.TempDir()
	// a file where the directory should be
	if err := os.WriteFile(filepath.Join(base, "wfendpoints"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEndpoints(base, zerolog.Nop())
	if e.Save("alice", "example.com", 0, &domain.Webfinger{}) {
		t.Fatalf("expected Save to fail")
	}
}

// ---------- meta documents ----------

func TestHostMetaAndNodeInfo(t *testing.T) {
	out, err := HostMeta("https", "example.com")
	if err != nil {
		t.Fatalf("HostMeta: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `rel="lrdd"`) ||
		!strings.Contains(s, `template="https://example.com/.well-known/webfinger?resource={uri}"`) ||
		!strings.Contains(s, "http://docs.oasis-open.org/ns/xri/xrd-1.0") {
		t.Fatalf("unexpected host-meta: %s", s)
	}

	ni := NodeInfoDiscovery("https", "example.com")
	links := ni["links"].([]map[string]string)
	if links[0]["href"] != "https://example.com/nodeinfo/2.0" || links[0]["rel"] != NodeInfoSchema20 {
		t.Fatalf("unexpected nodeinfo: %v", ni)
	}
}

func TestUpdateFromProfile(t *testing.T) {
	e := newStore(t)
	wf := &domain.Webfinger{
		Subject: "acct:alice@example.com",
		Aliases: []string{"https://example.com/@alice", "https://example.com/users/alice", "cwtch:stale"},
	}
	e.Save("alice", "example.com", 0, wf)

	actor := domain.ActorDocument{}
	identity.Set(actor, identity.XMPP, "alice@xmpp.example.org")
	identity.Set(actor, identity.Email, "alice@example.org")

	if !e.UpdateFromProfile("alice", "example.com", 0, actor) {
		t.Fatalf("expected change")
	}
	got, _ := e.Load("alice@example.com")
	want := []string{
		"https://example.com/@alice",
		"https://example.com/users/alice",
		"xmpp:alice@xmpp.example.org",
		"mailto:alice@example.org",
	}
	if strings.Join(got.Aliases, ",") != strings.Join(want, ",") {
		t.Fatalf("aliases = %v", got.Aliases)
	}

	// idempotent
	if e.UpdateFromProfile("alice", "example.com", 0, actor) {
		t.Fatalf("second update should be a no-op")
	}
	// unknown account
	if e.UpdateFromProfile("bob", "example.com", 0, actor) {
		t.Fatalf("missing document updated")
	}
}
