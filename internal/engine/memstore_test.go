package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hllmltyl/geri-donusum/internal/point"
)

// memStore is an in-memory point.Store that publishes changes on a real feed,
// close enough to the Postgres store for wiring tests.
type memStore struct {
	mu     sync.Mutex
	points map[string]point.RecyclingPoint
	feed   *point.Feed
	allErr error
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		points: map[string]point.RecyclingPoint{},
		clock:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) seed(p point.RecyclingPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
		p.UpdatedAt = p.CreatedAt
	}
	s.points[p.ID] = p
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *memStore) All(ctx context.Context) ([]point.RecyclingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allErr != nil {
		return nil, s.allErr
	}
	all := make([]point.RecyclingPoint, 0, len(s.points))
	for _, p := range s.points {
		all = append(all, p)
	}
	return all, nil
}

func (s *memStore) Get(ctx context.Context, id string) (point.RecyclingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.points[id]
	if !ok {
		return point.RecyclingPoint{}, point.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Create(ctx context.Context, input point.RecyclingPoint) (point.RecyclingPoint, error) {
	s.mu.Lock()
	input.ID = uuid.NewString()
	input.CreatedAt = s.tick()
	input.UpdatedAt = input.CreatedAt
	s.points[input.ID] = input
	s.mu.Unlock()

	s.publish(ctx, point.Change{Kind: point.ChangeAdded, Point: input})
	return input, nil
}

func (s *memStore) UpdateMetadata(ctx context.Context, id string, meta point.Metadata) (point.RecyclingPoint, error) {
	s.mu.Lock()
	p, ok := s.points[id]
	if !ok {
		s.mu.Unlock()
		return point.RecyclingPoint{}, point.ErrNotFound
	}
	p.Title = meta.Title
	p.Description = meta.Description
	p.Category = meta.Category
	p.UpdatedAt = s.tick()
	s.points[id] = p
	s.mu.Unlock()

	s.publish(ctx, point.Change{Kind: point.ChangeModified, Point: p})
	return p, nil
}

func (s *memStore) Approve(ctx context.Context, id string) (point.RecyclingPoint, error) {
	s.mu.Lock()
	p, ok := s.points[id]
	if !ok {
		s.mu.Unlock()
		return point.RecyclingPoint{}, point.ErrNotFound
	}
	p.Verified = true
	p.UpdatedAt = s.tick()
	s.points[id] = p
	s.mu.Unlock()

	s.publish(ctx, point.Change{Kind: point.ChangeModified, Point: p})
	return p, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.points[id]
	if !ok {
		s.mu.Unlock()
		return point.ErrNotFound
	}
	delete(s.points, id)
	s.mu.Unlock()

	s.publish(ctx, point.Change{Kind: point.ChangeRemoved, Point: point.RecyclingPoint{ID: id}})
	return nil
}

func (s *memStore) publish(ctx context.Context, change point.Change) {
	if s.feed != nil {
		s.feed.Publish(ctx, change)
	}
}
