package session

import (
	"sync"

	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

// Manager keys one state machine per signed-in viewer so a flow survives
// across requests for the lifetime of the map session.
type Manager struct {
	mu       sync.Mutex
	store    point.Store
	machines map[string]*Machine
}

func NewManager(store point.Store) *Manager {
	return &Manager{store: store, machines: map[string]*Machine{}}
}

// ForViewer returns the viewer's machine, creating an idle one on first use.
func (mgr *Manager) ForViewer(viewer visibility.ViewerContext) *Machine {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if machine, ok := mgr.machines[viewer.Identity]; ok {
		return machine
	}
	machine := NewMachine(viewer, mgr.store)
	if viewer.Identity != "" {
		mgr.machines[viewer.Identity] = machine
	}
	return machine
}

// Release drops the viewer's machine when the map session ends.
func (mgr *Manager) Release(identity string) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	delete(mgr.machines, identity)
}
