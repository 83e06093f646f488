package search

import (
	"fmt"
	"log/slog"
	"specimencore/pkg/domain"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source supplies the collections to search.
type Source interface {
	Collections() []domain.Collection
}

// Notifier publishes committed changes to subscribers.
type Notifier interface {
	Subscribe(fn func([]domain.Change)) (unsubscribe func())
}

// DefaultCacheSize is used when a non-positive size is configured.
const DefaultCacheSize = 128

type cacheKey struct {
	query string
	scope Scope
}

// Index caches query results over a Source. Cached entries are dropped
// whenever the attached Notifier reports a change.
type Index struct {
	source Source
	cache  *lru.Cache[cacheKey, []Result]
	logger *slog.Logger
	hits   prometheus.Counter
	misses prometheus.Counter

	// gen is bumped by Invalidate; results computed under an older
	// generation are not cached.
	gen atomic.Uint64
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) IndexOption {
	return func(i *Index) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics registers cache hit and miss counters with reg.
func WithMetrics(reg prometheus.Registerer) IndexOption {
	return func(i *Index) {
		f := promauto.With(reg)
		i.hits = f.NewCounter(prometheus.CounterOpts{
			Namespace: "specimen",
			Name:      "search_cache_hits_total",
			Help:      "Search queries answered from the result cache.",
		})
		i.misses = f.NewCounter(prometheus.CounterOpts{
			Namespace: "specimen",
			Name:      "search_cache_misses_total",
			Help:      "Search queries evaluated against the store.",
		})
	}
}

// NewIndex builds an index holding up to size cached queries.
func NewIndex(source Source, size int, opts ...IndexOption) (*Index, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, []Result](size)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	idx := &Index{source: source, cache: cache, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Attach purges the cache on every change n publishes. The returned func
// detaches the index.
func (i *Index) Attach(n Notifier) func() {
	return n.Subscribe(func(changes []domain.Change) {
		i.logger.Debug("search cache purged", "changes", len(changes))
		i.Invalidate()
	})
}

// Invalidate drops every cached result.
func (i *Index) Invalidate() {
	i.gen.Add(1)
	i.cache.Purge()
}

// Len reports the number of cached queries.
func (i *Index) Len() int { return i.cache.Len() }

// Search answers from the cache when possible. Callers must not modify the
// returned slice.
func (i *Index) Search(query string, scope Scope) []Result {
	if scope == "" {
		scope = ScopeAll
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	key := cacheKey{query: fold(query), scope: scope}
	if res, ok := i.cache.Get(key); ok {
		inc(i.hits)
		return res
	}
	inc(i.misses)
	gen := i.gen.Load()
	res := Search(i.source.Collections(), query, scope)
	if i.gen.Load() == gen {
		i.cache.Add(key, res)
	}
	return res
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
