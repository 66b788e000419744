package moderation

import (
	"context"
	"errors"
	"sort"

	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

// Controller applies the admin-only moderation intents. Every intent is
// guarded before any store call; effects become visible through the change
// feed, the controller never fakes a local mutation.
type Controller struct {
	store point.Store
	cache *cache.Cache
}

func NewController(store point.Store, c *cache.Cache) *Controller {
	return &Controller{store: store, cache: c}
}

// Approve publishes a pending point. Approving an already verified point is
// a no-op and issues no write; a concurrently deleted target is a benign
// race and is dropped.
func (ctrl *Controller) Approve(ctx context.Context, viewer visibility.ViewerContext, id string) error {
	if !viewer.Admin() {
		return point.ErrUnauthorized
	}

	if cached, ok := ctrl.cache.Get(id); ok && cached.Verified {
		return nil
	}

	if _, err := ctrl.store.Approve(ctx, id); err != nil {
		if errors.Is(err, point.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// EditMetadata changes a point's title, description and category. The
// coordinate is not part of the editable surface.
func (ctrl *Controller) EditMetadata(ctx context.Context, viewer visibility.ViewerContext, id string, meta point.Metadata) error {
	if !viewer.Admin() {
		return point.ErrUnauthorized
	}
	if err := meta.Validate(); err != nil {
		return err
	}

	if _, err := ctrl.store.UpdateMetadata(ctx, id, meta); err != nil {
		if errors.Is(err, point.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Delete removes a point for good. There is no soft delete and no undo.
func (ctrl *Controller) Delete(ctx context.Context, viewer visibility.ViewerContext, id string) error {
	if !viewer.Admin() {
		return point.ErrUnauthorized
	}

	if err := ctrl.store.Delete(ctx, id); err != nil {
		if errors.Is(err, point.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Pending lists unverified points for the moderation queue, newest first.
func (ctrl *Controller) Pending(viewer visibility.ViewerContext) ([]point.RecyclingPoint, error) {
	if !viewer.Admin() {
		return nil, point.ErrUnauthorized
	}

	var pending []point.RecyclingPoint
	for _, p := range ctrl.cache.Snapshot() {
		if !p.Verified {
			pending = append(pending, p)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}
