// Package embedding provides versioned storage of raw embeddings per entity,
// external to the graph index. Versions are append-only: a stored version is
// never mutated in place, and each entity tracks a current-version pointer.
package embedding

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// entity holds the append-only version history for one entity.
type entity struct {
	versions map[string][]float64
	order    []string
	current  string
}

// Manager stores versioned embeddings keyed by entity id. Unlike the index
// it is internally synchronized; it is an independent collaborator that may
// be shared across writers.
type Manager struct {
	mu       sync.RWMutex
	entities map[string]*entity
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		entities: make(map[string]*entity),
	}
}

// Store appends a new version of the embedding for entityID and makes it the
// current version. An empty version gets a generated identifier. Storing an
// already-present version fails with ErrVersionExists; versions are
// append-only. The returned string is the effective version.
func (m *Manager) Store(entityID string, vector []float64, version string) (string, error) {
	if version == "" {
		version = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[entityID]
	if !ok {
		e = &entity{versions: make(map[string][]float64)}
		m.entities[entityID] = e
	}

	if _, ok := e.versions[version]; ok {
		return "", ErrVersionExists
	}

	e.versions[version] = slices.Clone(vector)
	e.order = append(e.order, version)
	e.current = version

	return version, nil
}

// Current returns the current version of the embedding for entityID.
func (m *Manager) Current(entityID string) ([]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[entityID]
	if !ok {
		return nil, false
	}

	vec, ok := e.versions[e.current]
	if !ok {
		return nil, false
	}

	return slices.Clone(vec), true
}

// Version returns a specific stored version of the embedding for entityID.
func (m *Manager) Version(entityID, version string) ([]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[entityID]
	if !ok {
		return nil, false
	}

	vec, ok := e.versions[version]
	if !ok {
		return nil, false
	}

	return slices.Clone(vec), true
}

// Versions returns the version identifiers of entityID in append order.
func (m *Manager) Versions(entityID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[entityID]
	if !ok {
		return nil
	}

	return slices.Clone(e.order)
}

// CurrentVersion returns the current version identifier for entityID.
func (m *Manager) CurrentVersion(entityID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[entityID]
	if !ok {
		return "", false
	}

	return e.current, true
}

// SetCurrent moves the current-version pointer of entityID to an existing
// version. The version history is unchanged.
func (m *Manager) SetCurrent(entityID, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[entityID]
	if !ok {
		return ErrEntityNotFound
	}

	if _, ok := e.versions[version]; !ok {
		return ErrVersionNotFound
	}

	e.current = version

	return nil
}

// Delete removes entityID along with its entire version history.
func (m *Manager) Delete(entityID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entities[entityID]; !ok {
		return false
	}

	delete(m.entities, entityID)

	return true
}

// Len returns the number of stored entities.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entities)
}

// EntityIDs returns the ids of all stored entities, sorted.
func (m *Manager) EntityIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
