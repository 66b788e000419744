package session

import (
	"context"
	"sync"

	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

type State string

const (
	StateIdle              State = "idle"
	StateSelectingLocation State = "selecting_location"
	StateAwaitingDetails   State = "awaiting_details"
	StateEditingDetails    State = "editing_details"
	StateSubmitting        State = "submitting"
	StateErrored           State = "errored"
)

// Draft is the transient record of a point being created or edited. It is
// owned by exactly one Machine and is never written to the store as-is; only
// its validated contents are.
type Draft struct {
	Coordinate  *point.Coordinate `json:"coordinate,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    point.Category    `json:"category"`
	// Editing references the point whose metadata is being changed; nil when
	// creating a new one.
	Editing *point.RecyclingPoint `json:"editing,omitempty"`
}

// Machine drives the add-or-edit flow for a single viewer. All methods are
// safe for concurrent use; the store write is the only operation that leaves
// the machine, and it runs without holding the lock.
type Machine struct {
	mu     sync.Mutex
	viewer visibility.ViewerContext
	store  point.Store

	state   State
	resume  State // step to return to after an acknowledged error
	draft   *Draft
	lastErr error
}

func NewMachine(viewer visibility.ViewerContext, store point.Store) *Machine {
	return &Machine{viewer: viewer, store: store, state: StateIdle}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Draft returns a copy of the current draft, or nil when no flow is active.
func (m *Machine) Draft() *Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draft == nil {
		return nil
	}
	copied := *m.draft
	if m.draft.Coordinate != nil {
		coord := *m.draft.Coordinate
		copied.Coordinate = &coord
	}
	if m.draft.Editing != nil {
		editing := *m.draft.Editing
		copied.Editing = &editing
	}
	return &copied
}

// Err returns the error that moved the machine into StateErrored.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// StartAdd enters location selection for a new point. seed is the viewer's
// device position when available; without it the coordinate stays unset until
// the first viewport update.
func (m *Machine) StartAdd(seed *point.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.viewer.SignedIn() {
		return point.ErrUnauthorized
	}
	if m.state == StateSubmitting {
		return point.ValidationError{Field: "state", Reason: "submit in progress"}
	}

	draft := &Draft{Category: point.CategoryOther}
	if seed != nil {
		coord := *seed
		draft.Coordinate = &coord
	}
	m.draft = draft
	m.state = StateSelectingLocation
	m.lastErr = nil
	return nil
}

// StartEdit enters the metadata edit flow for an existing point. The
// coordinate is pre-seeded from the target and is never sent back to the
// store. Editing is a moderation concern, so it requires the admin role.
func (m *Machine) StartEdit(target point.RecyclingPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.viewer.Admin() {
		return point.ErrUnauthorized
	}
	if m.state == StateSubmitting {
		return point.ValidationError{Field: "state", Reason: "submit in progress"}
	}

	coord := target.Coordinate()
	m.draft = &Draft{
		Coordinate:  &coord,
		Title:       target.Title,
		Description: target.Description,
		Category:    target.Category,
		Editing:     &target,
	}
	m.state = StateEditingDetails
	m.lastErr = nil
	return nil
}

// ViewportChanged tracks the map center while a location is being selected.
// It is a high-frequency event and performs no I/O; outside of
// StateSelectingLocation it is ignored.
func (m *Machine) ViewportChanged(center point.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateSelectingLocation {
		return
	}
	coord := center
	m.draft.Coordinate = &coord
}

// ConfirmLocation fixes the candidate coordinate and moves on to the details
// form.
func (m *Machine) ConfirmLocation() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateSelectingLocation {
		return point.ValidationError{Field: "state", Reason: "no location selection in progress"}
	}
	if m.draft.Coordinate == nil {
		return point.ValidationError{Field: "coordinate", Reason: "no location picked yet"}
	}
	if err := point.ValidateCoordinate(*m.draft.Coordinate); err != nil {
		return err
	}
	m.state = StateAwaitingDetails
	return nil
}

// SetDetails updates the draft form fields in place.
func (m *Machine) SetDetails(title, description string, category point.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingDetails && m.state != StateEditingDetails {
		return point.ValidationError{Field: "state", Reason: "no details form open"}
	}
	m.draft.Title = title
	m.draft.Description = description
	m.draft.Category = category
	return nil
}

// Submit validates the draft and issues the store write asynchronously. The
// returned channel yields the terminal result; the machine stays responsive
// (cancel included) while the write is in flight. On success the draft is
// discarded and the new state arrives through the change feed, never by local
// injection.
func (m *Machine) Submit(ctx context.Context) (<-chan error, error) {
	m.mu.Lock()

	if m.state != StateAwaitingDetails && m.state != StateEditingDetails {
		m.mu.Unlock()
		return nil, point.ValidationError{Field: "state", Reason: "nothing to submit"}
	}
	meta := point.Metadata{
		Title:       m.draft.Title,
		Description: m.draft.Description,
		Category:    m.draft.Category,
	}
	if err := meta.Validate(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	draft := *m.draft
	m.resume = m.state
	m.state = StateSubmitting
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var err error
		if draft.Editing != nil {
			_, err = m.store.UpdateMetadata(ctx, draft.Editing.ID, meta)
		} else {
			// Verified and CreatedBy are assigned here, never taken from the
			// draft, so a viewer cannot self-approve or impersonate.
			_, err = m.store.Create(ctx, point.RecyclingPoint{
				Title:       meta.Title,
				Description: meta.Description,
				Category:    meta.Category,
				Lat:         draft.Coordinate.Lat,
				Lng:         draft.Coordinate.Lng,
				Verified:    false,
				CreatedBy:   m.viewer.Identity,
			})
		}
		m.finishSubmit(err)
		done <- err
	}()
	return done, nil
}

func (m *Machine) finishSubmit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A cancel raced the write; the result merges through the feed like any
	// other external change.
	if m.state != StateSubmitting {
		return
	}
	if err != nil {
		m.state = StateErrored
		m.lastErr = err
		return
	}
	m.state = StateIdle
	m.draft = nil
	m.lastErr = nil
}

// Acknowledge returns an errored machine to the details form with the draft
// intact so the viewer can retry.
func (m *Machine) Acknowledge() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateErrored {
		return point.ValidationError{Field: "state", Reason: "no error to acknowledge"}
	}
	m.state = m.resume
	m.lastErr = nil
	return nil
}

// Cancel abandons the flow and discards the draft. It is always permitted;
// when a write is in flight the draft UI closes but the write completes and
// its result merges into the cache through the feed.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateIdle
	m.draft = nil
	m.lastErr = nil
}
