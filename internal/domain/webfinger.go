package domain

// Link is one entry of a webfinger "links" array.
type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

// Webfinger is a JSON Resource Descriptor (RFC 7033) as served from
// /.well-known/webfinger and stored under wfendpoints/.
type Webfinger struct {
	Subject    string            `json:"subject"`
	Aliases    []string          `json:"aliases,omitempty"`
	Links      []Link            `json:"links"`
	Properties map[string]string `json:"properties,omitempty"`
}

// LinkByRel returns the first link with the given rel and, when typ is not
// empty, the given media type.
func (w *Webfinger) LinkByRel(rel, typ string) (Link, bool) {
	if w == nil {
		return Link{}, false
	}
	for _, l := range w.Links {
		if l.Rel != rel {
			continue
		}
		if typ != "" && l.Type != typ {
			continue
		}
		return l, true
	}
	return Link{}, false
}

// ActorURL returns the href of the rel=self activity+json link.
func (w *Webfinger) ActorURL() string {
	if l, ok := w.LinkByRel("self", "application/activity+json"); ok {
		return l.Href
	}
	return ""
}
