// Package attachment models the "attachment" list of an ActivityPub actor:
// an ordered list of typed name/value records carrying profile metadata such
// as contact addresses and keys.
//
// Entries are matched by protocol descriptors (see Protocol) rather than by
// hand-written scanning loops, so every identity field shares one lookup and
// one update routine. The package performs no I/O; callers load and persist
// the actor document themselves.
package attachment

import (
	"strings"

	"golang.org/x/text/cases"
)

// Property is one decoded attachment entry. It is a closed sum type:
// the only implementations are PropertyValue and LinkValue.
type Property interface {
	// PropertyName is the entry's display name as stored.
	PropertyName() string
	// Text is the entry's payload: Value for PropertyValue, Href for LinkValue.
	Text() string
	sealed()
}

// PropertyValue is a schema.org PropertyValue record {name, type, value}.
type PropertyValue struct {
	Name  string
	Type  string
	Value string
}

// LinkValue is a Link record {name, type, href, rel}.
type LinkValue struct {
	Name string
	Type string
	Href string
	Rel  string
}

func (p PropertyValue) PropertyName() string { return p.Name }
func (p PropertyValue) Text() string         { return p.Value }
func (PropertyValue) sealed()                {}

func (l LinkValue) PropertyName() string { return l.Name }
func (l LinkValue) Text() string         { return l.Href }
func (LinkValue) sealed()                {}

// Raw keys used on the wire.
const (
	keyName       = "name"
	keySchemaName = "schema:name"
	keyType       = "type"
	keyValue      = "value"
	keyHref       = "href"
	keyRel        = "rel"
)

// TypePropertyValue is the type written on newly created entries.
const TypePropertyValue = "PropertyValue"

var folder = cases.Fold()

// foldName case-folds an attachment name for discriminator matching.
func foldName(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// entryName returns the entry's name, falling back to "schema:name".
func entryName(entry map[string]any) (string, bool) {
	if s, ok := entry[keyName].(string); ok && s != "" {
		return s, true
	}
	if s, ok := entry[keySchemaName].(string); ok && s != "" {
		return s, true
	}
	return "", false
}

// decode converts a raw attachment entry into a Property. It reports false
// when the entry lacks a name, a type, or a non-empty value field.
func decode(raw any) (Property, bool) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	name, ok := entryName(entry)
	if !ok {
		return nil, false
	}
	typ, ok := entry[keyType].(string)
	if !ok || typ == "" {
		return nil, false
	}
	if v, ok := entry[keyValue].(string); ok && v != "" {
		return PropertyValue{Name: name, Type: typ, Value: v}, true
	}
	if h, ok := entry[keyHref].(string); ok && h != "" {
		rel, _ := entry[keyRel].(string)
		return LinkValue{Name: name, Type: typ, Href: h, Rel: rel}, true
	}
	return nil, false
}

// encode builds the raw wire form of a Property.
func encode(p Property) map[string]any {
	switch v := p.(type) {
	case PropertyValue:
		return map[string]any{keyName: v.Name, keyType: v.Type, keyValue: v.Value}
	case LinkValue:
		out := map[string]any{keyName: v.Name, keyType: v.Type, keyHref: v.Href}
		if v.Rel != "" {
			out[keyRel] = v.Rel
		}
		return out
	default:
		return nil
	}
}
