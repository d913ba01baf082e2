package inventory

import (
	"slices"

	"github.com/roach88/wardrobe/internal/ir"
)

// ChangeMask describes what kind of change observers are told about.
type ChangeMask uint32

const (
	ChangeAdd ChangeMask = 1 << iota
	ChangeRemove
	ChangeDescription
	ChangeStructure
)

// Observer is notified after a mutation with the mask and the affected ids.
type Observer func(mask ChangeMask, ids []ir.ID)

// AddObserver registers o and returns a handle for RemoveObserver.
func (m *Model) AddObserver(o Observer) int {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextObs++
	m.observers[m.nextObs] = o
	return m.nextObs
}

// RemoveObserver unregisters an observer. Safe to call from inside the
// observer itself.
func (m *Model) RemoveObserver(handle int) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	delete(m.observers, handle)
}

// ObserverCount returns the number of registered observers.
func (m *Model) ObserverCount() int {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	return len(m.observers)
}

func (m *Model) notify(mask ChangeMask, ids []ir.ID) {
	m.obsMu.Lock()
	handles := make([]int, 0, len(m.observers))
	for h := range m.observers {
		handles = append(handles, h)
	}
	m.obsMu.Unlock()

	// Registration order, so notification order is deterministic.
	slices.Sort(handles)
	for _, h := range handles {
		m.obsMu.Lock()
		o, ok := m.observers[h]
		m.obsMu.Unlock()
		if ok {
			o(mask, ids)
		}
	}
}
