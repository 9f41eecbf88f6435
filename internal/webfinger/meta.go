package webfinger

import (
	"encoding/xml"
	"slices"
	"strings"

	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/identity"
	"github.com/tbourn/go-fedi-core/internal/utils"
)

// NodeInfoSchema20 is the rel of the nodeinfo 2.0 discovery link.
const NodeInfoSchema20 = "http://nodeinfo.diaspora.software/ns/schema/2.0"

type xrdLink struct {
	Rel      string `xml:"rel,attr"`
	Type     string `xml:"type,attr,omitempty"`
	Template string `xml:"template,attr,omitempty"`
}

type xrd struct {
	XMLName xml.Name  `xml:"http://docs.oasis-open.org/ns/xri/xrd-1.0 XRD"`
	Links   []xrdLink `xml:"Link"`
}

// HostMeta renders /.well-known/host-meta pointing at the lrdd endpoint.
func HostMeta(httpPrefix, fullDomain string) ([]byte, error) {
	doc := xrd{Links: []xrdLink{{
		Rel:      "lrdd",
		Type:     "application/xrd+xml",
		Template: httpPrefix + "://" + fullDomain + "/.well-known/webfinger?resource={uri}",
	}}}
	out, err := xml.MarshalIndent(doc, "", " ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// NodeInfoDiscovery returns the /.well-known/nodeinfo document.
func NodeInfoDiscovery(httpPrefix, fullDomain string) map[string]any {
	return map[string]any{
		"links": []map[string]string{{
			"href": httpPrefix + "://" + fullDomain + "/nodeinfo/2.0",
			"rel":  NodeInfoSchema20,
		}},
	}
}

// aliasSchemes maps identity protocols to the URI scheme used when the
// address is published as a webfinger alias.
var aliasSchemes = []struct {
	proto  *identity.Descriptor
	scheme string
}{
	{identity.XMPP, "xmpp"},
	{identity.Matrix, "matrix"},
	{identity.Email, "mailto"},
	{identity.Briar, "briar"},
	{identity.Cwtch, "cwtch"},
}

// profileAliases returns the alias URIs implied by the actor's identity fields.
func profileAliases(actor domain.ActorDocument) map[string]string {
	out := map[string]string{}
	for _, a := range aliasSchemes {
		v, ok := identity.Get(actor, a.proto)
		if !ok {
			continue
		}
		if !strings.Contains(v, "://") {
			v = a.scheme + ":" + v
		}
		out[a.scheme] = v
	}
	return out
}

// UpdateFromProfile mirrors the actor's identity addresses into the aliases
// of its stored webfinger document, dropping aliases for fields that were
// removed. It reports whether the stored document changed.
func (e *Endpoints) UpdateFromProfile(nickname, domainName string, port int, actor domain.ActorDocument) bool {
	handle := nickname + "@" + utils.FullDomain(domainName, port)
	wf, ok := e.Load(handle)
	if !ok {
		return false
	}

	want := profileAliases(actor)
	changed := false
	kept := wf.Aliases[:0:0]
	for _, alias := range wf.Aliases {
		scheme, _, _ := strings.Cut(alias, ":")
		if _, managed := lookupScheme(scheme); managed {
			if want[scheme] != alias {
				changed = true
				continue
			}
		}
		kept = append(kept, alias)
	}
	for _, a := range aliasSchemes {
		v, ok := want[a.scheme]
		if !ok || slices.Contains(kept, v) {
			continue
		}
		kept = append(kept, v)
		changed = true
	}
	if !changed {
		return false
	}
	wf.Aliases = kept
	return e.Save(nickname, domainName, port, wf)
}

func lookupScheme(scheme string) (*identity.Descriptor, bool) {
	for _, a := range aliasSchemes {
		if a.scheme == scheme {
			return a.proto, true
		}
	}
	return nil, false
}
