package identity

import (
	"strings"
	"testing"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

const testKey = `-----BEGIN PGP PUBLIC KEY BLOCK-----

mDMEZQAAABYJKwYBBAHaRw8BAQdAexample
-----END PGP PUBLIC KEY BLOCK-----`

var cwtchAddr = strings.Repeat("abcdefgh", 7) // 56 chars

func validValues() map[*Descriptor]string {
	return map[*Descriptor]string{
		XMPP:           "alice@xmpp.example.org",
		Matrix:         "@alice:matrix.org",
		Jami:           "alicejami",
		Briar:          "briar://" + strings.Repeat("a", 50),
		Cwtch:          cwtchAddr,
		Email:          "alice@example.org",
		PGPKey:         testKey,
		PGPFingerprint: "0123456789ABCDEF",
	}
}

func TestSetGet_RoundTripAllProtocols(t *testing.T) {
	for d, v := range validValues() {
		actor := domain.ActorDocument{}
		Set(actor, d, v)
		got, ok := Get(actor, d)
		if !ok || got != v {
			t.Fatalf("%s: got %q ok=%v; want %q", d.Key, got, ok, v)
		}
	}
}

func TestSet_AllProtocolsCoexist(t *testing.T) {
	actor := domain.ActorDocument{}
	vals := validValues()
	for d, v := range vals {
		Set(actor, d, v)
	}
	fields := Fields(actor)
	if len(fields) != len(vals) {
		t.Fatalf("expected %d fields, got %d: %v", len(vals), len(fields), fields)
	}
	for d, v := range vals {
		if fields[d.Key] != v {
			t.Fatalf("%s: %q != %q", d.Key, fields[d.Key], v)
		}
	}
}

func TestSet_InvalidDeletesPrior(t *testing.T) {
	invalid := map[*Descriptor]string{
		XMPP:           "alice-at-example",
		Matrix:         "alice:matrix.org",
		Jami:           "a",
		Briar:          "briar://short",
		Cwtch:          strings.ToUpper(cwtchAddr[:1]) + cwtchAddr[1:],
		Email:          "@example.org",
		PGPKey:         "not a key",
		PGPFingerprint: "short",
	}
	for d, bad := range invalid {
		actor := domain.ActorDocument{}
		Set(actor, d, validValues()[d])
		Set(actor, d, bad)
		if got, ok := Get(actor, d); ok {
			t.Fatalf("%s: expected cleared, got %q", d.Key, got)
		}
	}
}

func TestMatrixValidation(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"@user:server.org", true},
		{"user:server.org", false},
		{"@user", false},
		{`@user:server.org"`, false},
		{"@user:<b>server.org", false},
	}
	for _, tc := range cases {
		if got := Matrix.Validate(tc.in); got != tc.want {
			t.Fatalf("Matrix.Validate(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestCwtchValidation(t *testing.T) {
	if !Cwtch.Validate(cwtchAddr) {
		t.Fatalf("56-char lowercase address rejected")
	}
	upper := cwtchAddr[:10] + "Q" + cwtchAddr[11:]
	if Cwtch.Validate(upper) {
		t.Fatalf("uppercase address accepted")
	}
	if Cwtch.Validate(cwtchAddr[:55]) {
		t.Fatalf("short address accepted")
	}
	if Cwtch.Validate(cwtchAddr[:55] + "-") {
		t.Fatalf("non-alphanumeric accepted")
	}
}

func TestOtherValidators(t *testing.T) {
	cases := []struct {
		d    *Descriptor
		in   string
		want bool
	}{
		{XMPP, "a@b.c", true},
		{XMPP, "a@bc", false},
		{XMPP, `a@b.c"`, false},
		{Jami, "ab", true},
		{Jami, "a b", false},
		{Jami, "a.b", false},
		{Briar, "briar://" + strings.Repeat("A", 50), false},
		{Briar, "briar:/" + strings.Repeat("a", 50), false},
		{Email, "a@b.c", true},
		{Email, "a@b<c>.d", false},
		{PGPKey, testKey, true},
		{PGPKey, testKey + "<script>", false},
		{PGPFingerprint, "0123456789", true},
	}
	for _, tc := range cases {
		if got := tc.d.Validate(tc.in); got != tc.want {
			t.Fatalf("%s.Validate(%q) = %v; want %v", tc.d.Key, tc.in, got, tc.want)
		}
	}
}

func TestGet_XMPPLinkAndMarkup(t *testing.T) {
	actor := domain.ActorDocument{"attachment": []any{
		map[string]any{"name": "Chat", "type": "Link", "href": "xmpp://alice@example.org", "rel": "me"},
		map[string]any{"name": "Matrix", "type": "schema:PropertyValue", "value": `<a href="https://matrix.to/#/@a:b.org">@a:b.org</a>`},
	}}

	if got, ok := Get(actor, XMPP); !ok || got != "alice@example.org" {
		t.Fatalf("XMPP = %q, %v", got, ok)
	}
	if got, ok := Get(actor, Matrix); !ok || got != "@a:b.org" {
		t.Fatalf("Matrix = %q, %v", got, ok)
	}
}

func TestGet_ExactTypeProtocolsIgnoreOtherTypes(t *testing.T) {
	actor := domain.ActorDocument{"attachment": []any{
		map[string]any{"name": "Email", "type": "schema:PropertyValue", "value": "a@b.c"},
	}}
	if _, ok := Get(actor, Email); ok {
		t.Fatalf("email read from non-PropertyValue entry")
	}
}

func TestExtractPublicKeyBlock(t *testing.T) {
	text := "my key:\n" + testKey + "\nthanks"
	got, ok := ExtractPublicKeyBlock(text)
	if !ok || got != testKey {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	if _, ok := ExtractPublicKeyBlock("-----BEGIN PGP PUBLIC KEY BLOCK-----\nabc"); ok {
		t.Fatalf("unterminated block accepted")
	}
}

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"plain":                    "plain",
		"<p>a</p><p>b</p>":         "a\nb\n",
		"line<br>next":             "line\nnext",
		"Tom &amp; Jerry":          "Tom & Jerry",
		`<span class="x">y</span>`: "y",
	}
	for in, want := range cases {
		if got := StripMarkup(in); got != want {
			t.Fatalf("StripMarkup(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestByKey(t *testing.T) {
	if d, ok := ByKey(" Matrix "); !ok || d != Matrix {
		t.Fatalf("ByKey(matrix) failed")
	}
	if _, ok := ByKey("tox"); ok {
		t.Fatalf("unknown key matched")
	}
}
