package webfinger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-fedi-core/internal/domain"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webfinger_cache_lookups_total",
			Help: "Webfinger cache lookups by result (hit|miss).",
		},
		[]string{"result"},
	)

	remoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webfinger_remote_fetches_total",
			Help: "Outbound webfinger requests by outcome (ok|error|empty).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, remoteFetches)
}

// Cache holds resolved webfinger documents keyed by "nickname@domain"
// (domain without port). Entries never expire; a later Set overwrites.
// It is safe for concurrent use; racing writers of one key are last-writer-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.Webfinger
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*domain.Webfinger)}
}

// Get returns the cached document for key.
func (c *Cache) Get(key string) (*domain.Webfinger, bool) {
	c.mu.RLock()
	wf, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
	return wf, ok
}

// Set stores wf under key.
func (c *Cache) Set(key string, wf *domain.Webfinger) {
	c.mu.Lock()
	c.entries[key] = wf
	c.mu.Unlock()
}

// Len reports the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
