package view

import (
	"strings"
	"sync"

	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

// FitViewport asks the map surface to frame the given coordinates. It is
// emitted once per applied filter, never while filters are merely edited.
type FitViewport struct {
	Coordinates []point.Coordinate `json:"coordinates"`
}

// View derives the rendered marker set from a cache snapshot: visibility
// first, then free-text and category predicates.
type View struct {
	mu       sync.Mutex
	query    string
	category point.Category
}

func New() *View {
	return &View{}
}

// SetFilter updates the live predicates without side effects.
func (v *View) SetFilter(query string, category point.Category) {
	v.mu.Lock()
	v.query = query
	v.category = category
	v.mu.Unlock()
}

func (v *View) Filter() (string, point.Category) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query, v.category
}

// Render computes the marker set for one snapshot and viewer.
func (v *View) Render(snapshot []point.RecyclingPoint, viewer visibility.ViewerContext) []point.RecyclingPoint {
	query, category := v.Filter()

	rendered := make([]point.RecyclingPoint, 0, len(snapshot))
	for _, p := range visibility.Visible(snapshot, viewer) {
		if matches(p, query, category) {
			rendered = append(rendered, p)
		}
	}
	return rendered
}

// Apply sets the predicates and renders, additionally returning a one-shot
// viewport fit when the result set is non-empty.
func (v *View) Apply(snapshot []point.RecyclingPoint, viewer visibility.ViewerContext, query string, category point.Category) ([]point.RecyclingPoint, *FitViewport) {
	v.SetFilter(query, category)

	rendered := v.Render(snapshot, viewer)
	if len(rendered) == 0 {
		return rendered, nil
	}

	coordinates := make([]point.Coordinate, 0, len(rendered))
	for _, p := range rendered {
		coordinates = append(coordinates, p.Coordinate())
	}
	return rendered, &FitViewport{Coordinates: coordinates}
}

func matches(p point.RecyclingPoint, query string, category point.Category) bool {
	if category != "" && p.Category != category {
		return false
	}
	if query == "" {
		return true
	}
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}
