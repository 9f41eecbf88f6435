package collections

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

var pageTmpl = template.Must(template.New("collection").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Nickname}} · {{.Feed}}</title></head>
<body>
<h1>{{.Nickname}}: {{.Feed}}</h1>
<p>{{.Total}} items</p>
<ul>
{{- range .Entries}}
<li>{{if .Href}}<a href="{{.Href}}" rel="nofollow">{{.Text}}</a>{{else}}{{.Text}}{{end}}</li>
{{- end}}
</ul>
{{- if .Next}}
<p><a href="{{.Next}}">next</a></p>
{{- end}}
</body>
</html>
`))

type htmlEntry struct {
	Href string
	Text string
}

type htmlPage struct {
	Nickname string
	Feed     Feed
	Total    int
	Entries  []htmlEntry
	Next     string
}

// HTMLRenderer renders collection documents as a minimal HTML listing.
type HTMLRenderer struct{}

// RenderCollection renders doc, which must be a document produced by Build.
func (HTMLRenderer) RenderCollection(nickname string, feed Feed, doc any) ([]byte, error) {
	page := htmlPage{Nickname: nickname, Feed: feed}
	switch d := doc.(type) {
	case *domain.OrderedCollection:
		page.Total = d.TotalItems
		page.Next = d.First
	case *domain.OrderedCollectionPage:
		page.Total = d.TotalItems
		page.Next = d.Next
		for _, it := range d.OrderedItems {
			page.Entries = append(page.Entries, entryFor(it))
		}
	default:
		return nil, fmt.Errorf("collections: cannot render %T", doc)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// entryFor turns a feed item into a list entry. Strings that look like URLs
// become links; objects are linked through their id.
func entryFor(it any) htmlEntry {
	switch v := it.(type) {
	case string:
		if isHTTPURL(v) {
			return htmlEntry{Href: v, Text: v}
		}
		return htmlEntry{Text: v}
	case map[string]any:
		id, _ := v["id"].(string)
		text := id
		if name, ok := v["name"].(string); ok && name != "" {
			text = name
		}
		if isHTTPURL(id) {
			return htmlEntry{Href: id, Text: text}
		}
		return htmlEntry{Text: text}
	default:
		return htmlEntry{Text: fmt.Sprint(v)}
	}
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
