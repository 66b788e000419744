// Package engine wires the point store's change feed into the cache and owns
// the subscription lifecycle for one service instance.
package engine

import (
	"context"
	"log"
	"sync"

	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/metrics"
	"github.com/hllmltyl/geri-donusum/internal/point"
)

type Engine struct {
	store point.Store
	feed  *point.Feed
	cache *cache.Cache
	prom  *metrics.Provider

	mu          sync.Mutex
	unsubscribe func()
}

// New assembles an engine. prom may be nil.
func New(store point.Store, feed *point.Feed, c *cache.Cache, prom *metrics.Provider) *Engine {
	return &Engine{store: store, feed: feed, cache: c, prom: prom}
}

func (e *Engine) Cache() *cache.Cache { return e.cache }

// Start subscribes to the change feed and loads the current collection into
// the cache as one added batch, the same shape every later notification has.
// The subscription attaches first: when the initial load fails the engine
// stays on the feed, so live changes still reach the cache and clear the
// degraded flag while the caller decides what to do with the error.
func (e *Engine) Start(ctx context.Context) error {
	unsubscribe := e.feed.Subscribe(e.apply, e.degrade)
	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	points, err := e.store.All(ctx)
	if err != nil {
		return err
	}

	initial := make([]point.Change, 0, len(points))
	for _, p := range points {
		initial = append(initial, point.Change{Kind: point.ChangeAdded, Point: p})
	}
	e.apply(initial)
	return nil
}

func (e *Engine) apply(changes []point.Change) {
	e.cache.Apply(changes)
	if e.cache.Degraded() != nil {
		// A batch made it through, the feed is live again.
		e.cache.SetDegraded(nil)
	}

	if e.prom != nil {
		for _, c := range changes {
			e.prom.ChangesTotal.WithLabelValues(string(c.Kind)).Inc()
		}
		e.prom.CachedPoints.Set(float64(e.cache.Len()))
	}
}

func (e *Engine) degrade(err error) {
	log.Printf("change feed degraded: %v", err)
	e.cache.SetDegraded(err)
	if e.prom != nil {
		e.prom.FeedErrorsTotal.Inc()
	}
}

// Close releases the feed subscription. It is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
