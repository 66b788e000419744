package cache

import (
	"sort"
	"sync"

	"github.com/hllmltyl/geri-donusum/internal/point"
)

// Cache is the in-memory table of every recycling point the change feed has
// delivered. It is written only by the engine's feed handler; everything else
// reads snapshots.
type Cache struct {
	mu       sync.RWMutex
	points   map[string]point.RecyclingPoint
	degraded error
	subs     map[*subscription]struct{}

	// notifyMu serializes whole Apply calls so subscribers receive snapshots
	// in the order the batches were applied. Write handlers publish from
	// their own goroutines; without this, a newer snapshot could be delivered
	// before an older one and park clients on the stale frame.
	notifyMu sync.Mutex
}

type subscription struct {
	notify func([]point.RecyclingPoint)
}

func New() *Cache {
	return &Cache{
		points: map[string]point.RecyclingPoint{},
		subs:   map[*subscription]struct{}{},
	}
}

// Apply upserts or removes points for a whole notification batch, then
// publishes one snapshot to subscribers. Readers never observe a partially
// applied batch.
func (c *Cache) Apply(changes []point.Change) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	for _, change := range changes {
		switch change.Kind {
		case point.ChangeAdded, point.ChangeModified:
			c.points[change.Point.ID] = change.Point
		case point.ChangeRemoved:
			delete(c.points, change.Point.ID)
		}
	}
	snapshot := c.snapshotLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, sub := range subs {
		sub.notify(snapshot)
	}
}

// Snapshot returns all known points ordered by creation time, oldest first.
func (c *Cache) Snapshot() []point.RecyclingPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Cache) Get(id string) (point.RecyclingPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.points[id]
	return p, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}

// SetDegraded latches a feed failure. The last snapshot keeps serving; a nil
// err clears the flag once the feed recovers.
func (c *Cache) SetDegraded(err error) {
	c.mu.Lock()
	c.degraded = err
	c.mu.Unlock()
}

// Degraded reports the latched feed error, if any.
func (c *Cache) Degraded() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}

// Subscribe registers a snapshot consumer and returns a disposer. The
// consumer runs on the feed goroutine; it must not call back into Apply.
func (c *Cache) Subscribe(notify func([]point.RecyclingPoint)) func() {
	sub := &subscription{notify: notify}

	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, sub)
			c.mu.Unlock()
		})
	}
}

func (c *Cache) snapshotLocked() []point.RecyclingPoint {
	snapshot := make([]point.RecyclingPoint, 0, len(c.points))
	for _, p := range c.points {
		snapshot = append(snapshot, p)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].CreatedAt.Equal(snapshot[j].CreatedAt) {
			return snapshot[i].ID < snapshot[j].ID
		}
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})
	return snapshot
}

func (c *Cache) subscribersLocked() []*subscription {
	subs := make([]*subscription, 0, len(c.subs))
	for sub := range c.subs {
		subs = append(subs, sub)
	}
	return subs
}
