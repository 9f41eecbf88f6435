package webfinger

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

// ContentTypeJRD is the media type of webfinger documents.
const ContentTypeJRD = "application/jrd+json"

// DefaultTimeout bounds outbound webfinger requests when none is configured.
const DefaultTimeout = 10 * time.Second

// Resolver resolves remote handles to webfinger documents, consulting the
// cache before the network.
type Resolver struct {
	client     *resty.Client
	cache      *Cache
	httpPrefix string
	log        zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the underlying transport client (tests, proxies).
// hc itself is not modified; the resolver works on a copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Resolver) {
		if hc == nil {
			return
		}
		timeout := r.client.GetClient().Timeout
		cp := *hc
		r.client = resty.NewWithClient(&cp).SetTimeout(timeout)
	}
}

// WithHTTPPrefix sets the scheme used for outbound requests ("https" by default).
func WithHTTPPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix != "" {
			r.httpPrefix = prefix
		}
	}
}

// WithLogger sets the logger used for failed resolutions.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver builds a Resolver using cache, with outbound requests bounded
// by timeout (DefaultTimeout when <= 0).
func NewResolver(cache *Cache, timeout time.Duration, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cache == nil {
		cache = NewCache()
	}
	r := &Resolver{
		client:     resty.New().SetTimeout(timeout),
		cache:      cache,
		httpPrefix: "https",
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.client.SetHeader("Accept", ContentTypeJRD)
	return r
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns the webfinger document for handle. Unparseable handles,
// transport failures and empty answers all report ok=false; errors are
// logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, handle string) (*domain.Webfinger, bool) {
	tr := otel.Tracer("webfinger/Resolver")
	ctx, span := tr.Start(ctx, "Resolve", trace.WithAttributes(attribute.String("handle", handle)))
	defer span.End()

	nickname, host, ok := ParseHandle(handle)
	if !ok {
		r.log.Debug().Str("handle", handle).Msg("webfinger: unparseable handle")
		return nil, false
	}
	key := CacheKey(nickname, host)
	if wf, ok := r.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return wf, true
	}

	url := r.httpPrefix + "://" + host + "/.well-known/webfinger"
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("resource", "acct:"+key).
		Get(url)
	if err != nil {
		remoteFetches.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Str("handle", key).Str("url", url).Msg("webfinger: fetch failed")
		return nil, false
	}
	if resp.IsError() {
		remoteFetches.WithLabelValues("error").Inc()
		r.log.Info().Int("status", resp.StatusCode()).Str("handle", key).Msg("webfinger: remote returned error")
		return nil, false
	}

	var wf domain.Webfinger
	if err := json.Unmarshal(resp.Body(), &wf); err != nil || (wf.Subject == "" && len(wf.Links) == 0) {
		remoteFetches.WithLabelValues("empty").Inc()
		r.log.Info().Str("handle", key).Msg("webfinger: empty or malformed document")
		return nil, false
	}

	remoteFetches.WithLabelValues("ok").Inc()
	r.cache.Set(key, &wf)
	return &wf, true
}
