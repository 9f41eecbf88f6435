package attachment

import (
	"strings"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

const keyAttachment = "attachment"

// Protocol describes one kind of identity field stored in the attachment list.
type Protocol interface {
	// Discriminate reports whether a case-folded attachment name belongs to
	// this protocol.
	Discriminate(foldedName string) bool
	// Validate reports whether value may be stored.
	Validate(value string) bool
	// DisplayName is the name written on newly appended entries.
	DisplayName() string
}

// LinkReader is implemented by protocols that also read Link-shaped entries.
type LinkReader interface {
	ReadsLinks() bool
}

// TypeMatcher is implemented by protocols that restrict the entry type they
// read. Protocols without it accept any type ending in "PropertyValue".
type TypeMatcher interface {
	AcceptsType(typ string) bool
}

// Prefixes is a discriminator matching any name that starts with one of its
// entries. Entries must already be lower case.
type Prefixes []string

// Match reports whether foldedName starts with any prefix.
func (p Prefixes) Match(foldedName string) bool {
	for _, pre := range p {
		if strings.HasPrefix(foldedName, pre) {
			return true
		}
	}
	return false
}

// accepts applies the protocol's shape rules to a decoded entry.
func accepts(p Protocol, prop Property) bool {
	switch v := prop.(type) {
	case PropertyValue:
		if tm, ok := p.(TypeMatcher); ok {
			return tm.AcceptsType(v.Type)
		}
		return strings.HasSuffix(v.Type, TypePropertyValue)
	case LinkValue:
		lr, ok := p.(LinkReader)
		return ok && lr.ReadsLinks()
	default:
		return false
	}
}

// entries returns the attachment list, or nil when absent or not a list.
func entries(actor domain.ActorDocument) []any {
	if actor == nil {
		return nil
	}
	switch v := actor[keyAttachment].(type) {
	case []any:
		return v
	case []map[string]any:
		list := make([]any, len(v))
		for i, e := range v {
			list[i] = e
		}
		return list
	default:
		return nil
	}
}

// findIndex returns the index of the first entry passing the full lookup
// criteria for p, or -1.
func findIndex(list []any, p Protocol) (int, Property) {
	for i, raw := range list {
		prop, ok := decode(raw)
		if !ok {
			continue
		}
		if !p.Discriminate(foldName(prop.PropertyName())) {
			continue
		}
		if !accepts(p, prop) {
			continue
		}
		return i, prop
	}
	return -1, nil
}

// Find returns the first attachment entry belonging to p. Entries missing a
// name, a type or a non-empty value field are skipped.
func Find(actor domain.ActorDocument, p Protocol) (Property, bool) {
	_, prop := findIndex(entries(actor), p)
	return prop, prop != nil
}

// Remove deletes the first entry whose name belongs to p, regardless of its
// type or value. It reports whether an entry was removed.
func Remove(actor domain.ActorDocument, p Protocol) bool {
	list := entries(actor)
	for i, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, ok := entryName(entry)
		if !ok || !p.Discriminate(foldName(name)) {
			continue
		}
		actor[keyAttachment] = append(list[:i:i], list[i+1:]...)
		return true
	}
	return false
}

// Upsert stores value for p. Any existing entry for p is removed first; when
// value fails validation the field is left absent. Otherwise a remaining
// matching entry is overwritten in place, or a new PropertyValue named
// p.DisplayName() is appended. The attachment list is created on demand.
// The (mutated) actor is returned for chaining.
func Upsert(actor domain.ActorDocument, p Protocol, value string) domain.ActorDocument {
	if actor == nil {
		actor = domain.ActorDocument{}
	}
	valid := p.Validate(value)
	if list := entries(actor); list != nil {
		actor[keyAttachment] = list
	} else {
		actor[keyAttachment] = []any{}
	}
	Remove(actor, p)
	if !valid {
		return actor
	}

	list := entries(actor)
	if i, prop := findIndex(list, p); i >= 0 {
		entry := list[i].(map[string]any)
		switch prop.(type) {
		case PropertyValue:
			entry[keyValue] = value
		case LinkValue:
			entry[keyHref] = value
		}
		return actor
	}

	actor[keyAttachment] = append(list, encode(PropertyValue{
		Name:  p.DisplayName(),
		Type:  TypePropertyValue,
		Value: value,
	}))
	return actor
}
