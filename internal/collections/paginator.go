// Package collections serves the paginated ActivityPub feeds of a local
// account: following, followers, shares, moved and inactive.
//
// Feeds are backed by line-oriented files under the account directory.
// Missing or empty files are an empty feed; no call here returns an error.
package collections

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/utils"
)

// Feed names a collection served under /users/{nick}/{feed}.
type Feed string

const (
	Following Feed = "following"
	Followers Feed = "followers"
	Shares    Feed = "shares"
	Moved     Feed = "moved"
	Inactive  Feed = "inactive"
)

// Feeds lists every servable feed.
var Feeds = []Feed{Following, Followers, Shares, Moved, Inactive}

// ParseFeed maps a path segment onto a Feed.
func ParseFeed(s string) (Feed, bool) {
	for _, f := range Feeds {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// followRelated feeds are suppressed for unauthorized viewers of accounts
// that hide their follows.
func (f Feed) followRelated() bool {
	return f != Shares
}

// Defaults applied when a Request leaves the value unset.
const (
	DefaultItemsPerPage         = 12
	DefaultUnauthorizedPageSize = 6
	DefaultInactiveDays         = 90
	maxPageDigits               = 5
)

// Request describes one feed request.
type Request struct {
	BaseDir    string
	Nickname   string
	Domain     string // without port
	Port       int
	HTTPPrefix string

	// Path is the request path and may carry "?page=N".
	Path string

	Authorized           bool
	ItemsPerPage         int
	UnauthorizedPageSize int
	InactiveDays         int
}

func (r Request) pageSize() int {
	n := r.ItemsPerPage
	if n <= 0 {
		n = DefaultItemsPerPage
	}
	if !r.Authorized {
		small := r.UnauthorizedPageSize
		if small <= 0 {
			small = DefaultUnauthorizedPageSize
		}
		if small < n {
			n = small
		}
	}
	return n
}

// Paginator builds collection documents.
type Paginator struct {
	log zerolog.Logger
	now func() time.Time
}

// NewPaginator returns a Paginator logging to log.
func NewPaginator(log zerolog.Logger) *Paginator {
	return &Paginator{log: log, now: time.Now}
}

// PageParam extracts the requested page from path. The second result is
// false when no page parameter is present. Values longer than five
// characters, "true", or anything that is not a positive integer select
// page 1.
func PageParam(path string) (int, bool) {
	_, query, ok := strings.Cut(path, "?")
	if !ok {
		return 0, false
	}
	var raw string
	found := false
	for _, kv := range strings.Split(query, "&") {
		if v, ok := strings.CutPrefix(kv, "page="); ok {
			raw, found = v, true
			break
		}
	}
	if !found {
		return 0, false
	}
	raw, _, _ = strings.Cut(raw, "#")
	if len(raw) > maxPageDigits || raw == "true" {
		return 1, true
	}
	n := utils.AtoiDefault(raw, 1)
	if n < 1 {
		n = 1
	}
	return n, true
}

// Build returns either a *domain.OrderedCollection (no page requested) or a
// *domain.OrderedCollectionPage for feed.
func (p *Paginator) Build(ctx context.Context, feed Feed, req Request) any {
	tr := otel.Tracer("collections/Paginator")
	_, span := tr.Start(ctx, "Build", trace.WithAttributes(
		attribute.String("feed", string(feed)),
		attribute.String("nickname", req.Nickname),
		attribute.Bool("authorized", req.Authorized),
	))
	defer span.End()

	full := utils.FullDomain(req.Domain, req.Port)
	collectionID := utils.ActorURL(req.HTTPPrefix, full, req.Nickname) + "/" + string(feed)
	accountDir := AccountDir(req.BaseDir, req.Nickname, req.Domain)

	var items []any
	if !(feed.followRelated() && !req.Authorized && FollowsHidden(accountDir)) {
		items = p.items(feed, req, accountDir)
	}
	total := len(items)

	page, paged := PageParam(req.Path)
	if !paged {
		return &domain.OrderedCollection{
			Context:      domain.ActivityStreamsContext,
			ID:           collectionID,
			Type:         domain.TypeOrderedCollection,
			First:        collectionID + "?page=1",
			TotalItems:   total,
			OrderedItems: []any{},
		}
	}

	perPage := req.pageSize()
	out := &domain.OrderedCollectionPage{
		Context:      domain.ActivityStreamsContext,
		ID:           collectionID + "?page=" + strconv.Itoa(page),
		Type:         domain.TypeOrderedCollectionPage,
		PartOf:       collectionID,
		TotalItems:   total,
		OrderedItems: pageItems(items, page, perPage),
	}
	if last := lastPage(total, perPage); page+1 <= last {
		// next jumps to the final page rather than page+1
		out.Next = collectionID + "?page=" + strconv.Itoa(last)
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("total", total))
	return out
}

// pageItems walks items in order, moving to the next bucket every perPage
// entries, and keeps those falling into the requested bucket.
func pageItems(items []any, page, perPage int) []any {
	out := []any{}
	bucket, count := 1, 0
	for _, it := range items {
		if bucket > page {
			break
		}
		if bucket == page {
			out = append(out, it)
		}
		count++
		if count >= perPage {
			bucket++
			count = 0
		}
	}
	return out
}

func lastPage(total, perPage int) int {
	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	return last
}

func (p *Paginator) items(feed Feed, req Request, accountDir string) []any {
	switch feed {
	case Shares:
		return shareItems(accountDir)
	case Following, Followers:
		return p.actorURLs(req.HTTPPrefix, readLines(filepath.Join(accountDir, string(feed)+".txt")))
	case Moved:
		return p.actorURLs(req.HTTPPrefix, movedFollows(req.BaseDir, accountDir))
	case Inactive:
		days := req.InactiveDays
		if days <= 0 {
			days = DefaultInactiveDays
		}
		return p.actorURLs(req.HTTPPrefix, inactiveFollowers(accountDir, req.HTTPPrefix, days, p.now()))
	}
	return nil
}

func (p *Paginator) actorURLs(httpPrefix string, handles []string) []any {
	out := make([]any, 0, len(handles))
	for _, h := range handles {
		u, ok := utils.HandleToActorURL(httpPrefix, h)
		if !ok {
			// still counted in totalItems
			p.log.Debug().Str("entry", h).Msg("collections: entry is not a handle")
			u = h
		}
		out = append(out, u)
	}
	return out
}
