package identity

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/tbourn/go-fedi-core/internal/attachment"
	"github.com/tbourn/go-fedi-core/internal/domain"
)

const (
	pgpBegin = "--BEGIN PGP PUBLIC KEY BLOCK--"
	pgpEnd   = "--END PGP PUBLIC KEY BLOCK--"
)

// Get returns the stored value for d with markup removed. XMPP addresses
// additionally lose any xmpp:// scheme.
func Get(actor domain.ActorDocument, d *Descriptor) (string, bool) {
	prop, ok := attachment.Find(actor, d)
	if !ok {
		return "", false
	}
	v := strings.TrimSpace(StripMarkup(prop.Text()))
	if d == XMPP {
		v = strings.TrimPrefix(v, "xmpp://")
	}
	if v == "" {
		return "", false
	}
	return v, true
}

// Set stores value for d. An invalid or empty value clears the field.
// The mutated actor is returned.
func Set(actor domain.ActorDocument, d *Descriptor, value string) domain.ActorDocument {
	return attachment.Upsert(actor, d, strings.TrimSpace(value))
}

// Fields returns every identity field present on actor, keyed by protocol key.
func Fields(actor domain.ActorDocument) map[string]string {
	out := make(map[string]string, len(All))
	for _, d := range All {
		if v, ok := Get(actor, d); ok {
			out[d.Key] = v
		}
	}
	return out
}

// ExtractPublicKeyBlock returns the armored PGP public key block contained in
// s, delimiters included.
func ExtractPublicKeyBlock(s string) (string, bool) {
	start := strings.Index(s, pgpBegin)
	if start < 0 {
		return "", false
	}
	end := strings.Index(s[start:], pgpEnd)
	if end < 0 {
		return "", false
	}
	end += start + len(pgpEnd)
	// include the dashes surrounding the delimiter text
	for start > 0 && s[start-1] == '-' {
		start--
	}
	for end < len(s) && s[end] == '-' {
		end++
	}
	return s[start:end], true
}

// StripMarkup removes HTML tags from s and decodes entities. Line-breaking
// elements become newlines.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return s
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "p" {
				b.WriteByte('\n')
			}
		}
	}
}
