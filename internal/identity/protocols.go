// Package identity reads and writes third-party identity addresses (XMPP,
// Matrix, Jami, Briar, Cwtch, email, PGP) stored in an actor's attachment
// list. Each protocol is a small descriptor implementing attachment.Protocol;
// Get and Set are shared by all of them.
package identity

import (
	"regexp"
	"strings"

	"github.com/tbourn/go-fedi-core/internal/attachment"
)

// Descriptor is a table-driven attachment.Protocol.
type Descriptor struct {
	// Key is the stable identifier used by the HTTP API ("xmpp", "matrix", ...).
	Key string
	// Name is written as the display name of new attachment entries.
	Name string
	// Prefixes are matched against the case-folded attachment name.
	Prefixes attachment.Prefixes
	// Check validates a candidate value.
	Check func(string) bool
	// Links enables reading Link-shaped entries (href instead of value).
	Links bool
	// ExactType, when set, restricts reads to entries of exactly this type.
	ExactType string
}

var (
	_ attachment.Protocol    = (*Descriptor)(nil)
	_ attachment.LinkReader  = (*Descriptor)(nil)
	_ attachment.TypeMatcher = (*Descriptor)(nil)
)

func (d *Descriptor) Discriminate(foldedName string) bool { return d.Prefixes.Match(foldedName) }
func (d *Descriptor) Validate(value string) bool          { return d.Check(value) }
func (d *Descriptor) DisplayName() string                 { return d.Name }
func (d *Descriptor) ReadsLinks() bool                    { return d.Links }

// AcceptsType reports whether an entry type is readable for this protocol.
func (d *Descriptor) AcceptsType(typ string) bool {
	if d.ExactType != "" {
		return typ == d.ExactType
	}
	return strings.HasSuffix(typ, attachment.TypePropertyValue)
}

var cwtchRE = regexp.MustCompile(`^[a-z0-9]*$`)

// Protocol descriptors.
var (
	XMPP = &Descriptor{
		Key:      "xmpp",
		Name:     "XMPP",
		Prefixes: attachment.Prefixes{"xmpp", "jabber", "chat"},
		Links:    true,
		Check: func(v string) bool {
			return strings.Contains(v, "@") &&
				strings.Contains(v, ".") &&
				!strings.ContainsAny(v, `"<`)
		},
	}

	Matrix = &Descriptor{
		Key:      "matrix",
		Name:     "Matrix",
		Prefixes: attachment.Prefixes{"matrix"},
		Check: func(v string) bool {
			return strings.HasPrefix(v, "@") &&
				strings.Contains(v, ".") &&
				strings.Contains(v, ":") &&
				!strings.ContainsAny(v, `"<`)
		},
	}

	Jami = &Descriptor{
		Key:       "jami",
		Name:      "Jami",
		Prefixes:  attachment.Prefixes{"jami"},
		ExactType: attachment.TypePropertyValue,
		Check: func(v string) bool {
			return len(v) >= 2 && !strings.ContainsAny(v, ` ".,<`)
		},
	}

	Briar = &Descriptor{
		Key:       "briar",
		Name:      "Briar",
		Prefixes:  attachment.Prefixes{"briar"},
		ExactType: attachment.TypePropertyValue,
		Check: func(v string) bool {
			return len(v) >= 50 &&
				strings.HasPrefix(v, "briar://") &&
				v == strings.ToLower(v) &&
				!strings.ContainsAny(v, ` ",.`)
		},
	}

	Cwtch = &Descriptor{
		Key:       "cwtch",
		Name:      "Cwtch",
		Prefixes:  attachment.Prefixes{"cwtch"},
		ExactType: attachment.TypePropertyValue,
		Check: func(v string) bool {
			return len(v) >= 56 && v == strings.ToLower(v) && cwtchRE.MatchString(v)
		},
	}

	Email = &Descriptor{
		Key:       "email",
		Name:      "Email",
		Prefixes:  attachment.Prefixes{"email"},
		ExactType: attachment.TypePropertyValue,
		Check: func(v string) bool {
			return strings.Contains(v, "@") &&
				strings.Contains(v, ".") &&
				!strings.Contains(v, "<") &&
				!strings.HasPrefix(v, "@")
		},
	}

	PGPKey = &Descriptor{
		Key:       "pgp",
		Name:      "PGP",
		Prefixes:  attachment.Prefixes{"pgp"},
		ExactType: attachment.TypePropertyValue,
		Check: func(v string) bool {
			_, ok := ExtractPublicKeyBlock(v)
			return ok && !strings.Contains(v, "<")
		},
	}

	PGPFingerprint = &Descriptor{
		Key:       "openpgp",
		Name:      "OpenPGP",
		Prefixes:  attachment.Prefixes{"openpgp"},
		ExactType: attachment.TypePropertyValue,
		Check: func(v string) bool {
			return len(v) >= 10
		},
	}
)

// All lists every supported protocol in display order.
var All = []*Descriptor{XMPP, Matrix, Email, Jami, Briar, Cwtch, PGPFingerprint, PGPKey}

// ByKey returns the protocol with the given API key.
func ByKey(key string) (*Descriptor, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, d := range All {
		if d.Key == key {
			return d, true
		}
	}
	return nil, false
}
