// Package ownership implements OwnershipMap: the bidirectional-capable
// binding between entities and the (TypeKey, index) slots they own.
//
// The forward and inverse per-type maps are backed by
// github.com/kamstrup/intmap, the same integer-keyed map used for an
// archetype's EntityId -> weak.Pointer[EntityRef] bookkeeping elsewhere in
// this codebase's lineage — here it plays the identical role for
// EntityId -> index and its inverse.
package ownership

import (
	"sync"

	"github.com/kamstrup/intmap"

	"github.com/plus3/slabstore/entityid"
	"github.com/plus3/slabstore/errkind"
	"github.com/plus3/slabstore/typekey"
)

const initialMapHint = 64

// Map is the store-wide ownership binding. One Map serves every TypeKey.
type Map struct {
	mu sync.Mutex

	// forward/inverse are keyed by TypeKey, a small, bounded set (one
	// entry per registered component type) — not the hot per-entity
	// path — so a plain Go map is the right tool here, unlike the
	// per-entity bindings below.
	forward map[typekey.TypeKey]*intmap.Map[entityid.EntityId, int]
	inverse map[typekey.TypeKey]*intmap.Map[int, entityid.EntityId]

	byEntity map[entityid.EntityId]map[typekey.TypeKey]struct{}
}

// New creates an empty ownership Map.
func New() *Map {
	return &Map{
		forward:  make(map[typekey.TypeKey]*intmap.Map[entityid.EntityId, int]),
		inverse:  make(map[typekey.TypeKey]*intmap.Map[int, entityid.EntityId]),
		byEntity: make(map[entityid.EntityId]map[typekey.TypeKey]struct{}),
	}
}

// ensure returns (creating if necessary) the forward/inverse maps for t.
// Callers must hold m.mu.
func (m *Map) ensure(t typekey.TypeKey) (*intmap.Map[entityid.EntityId, int], *intmap.Map[int, entityid.EntityId]) {
	fwd, ok := m.forward[t]
	if !ok {
		fwd = intmap.New[entityid.EntityId, int](initialMapHint)
		m.forward[t] = fwd
	}
	inv, ok := m.inverse[t]
	if !ok {
		inv = intmap.New[int, entityid.EntityId](initialMapHint)
		m.inverse[t] = inv
	}
	return fwd, inv
}

// Bind records (entity, type) -> index. Fails with DuplicateComponent if
// the entity already owns this type.
func (m *Map) Bind(e entityid.EntityId, t typekey.TypeKey, idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fwd, inv := m.ensure(t)
	if _, exists := fwd.Get(e); exists {
		return errkind.DuplicateComponent
	}
	fwd.Put(e, idx)
	inv.Put(idx, e)

	set, ok := m.byEntity[e]
	if !ok {
		set = make(map[typekey.TypeKey]struct{}, 4)
		m.byEntity[e] = set
	}
	set[t] = struct{}{}
	return nil
}

// Rebind updates the index for an existing (entity, type) binding. Fails
// with NotFound if no such binding exists.
func (m *Map) Rebind(e entityid.EntityId, t typekey.TypeKey, newIdx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fwd, ok := m.forward[t]
	if !ok {
		return errkind.NotFound
	}
	oldIdx, exists := fwd.Get(e)
	if !exists {
		return errkind.NotFound
	}
	inv := m.inverse[t]
	inv.Del(oldIdx)
	fwd.Put(e, newIdx)
	inv.Put(newIdx, e)
	return nil
}

// Lookup returns the index bound to (entity, type), or NotFound.
func (m *Map) Lookup(e entityid.EntityId, t typekey.TypeKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fwd, ok := m.forward[t]
	if !ok {
		return 0, errkind.NotFound
	}
	idx, exists := fwd.Get(e)
	if !exists {
		return 0, errkind.NotFound
	}
	return idx, nil
}

// Unbind removes the (type -> index) entry for entity. Fails with
// NotFound if absent.
func (m *Map) Unbind(e entityid.EntityId, t typekey.TypeKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fwd, ok := m.forward[t]
	if !ok {
		return errkind.NotFound
	}
	idx, exists := fwd.Get(e)
	if !exists {
		return errkind.NotFound
	}
	fwd.Del(e)
	if inv, ok := m.inverse[t]; ok {
		inv.Del(idx)
	}
	if set, ok := m.byEntity[e]; ok {
		delete(set, t)
		if len(set) == 0 {
			delete(m.byEntity, e)
		}
	}
	return nil
}

// Forget removes every binding belonging to entity.
func (m *Map) Forget(e entityid.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.byEntity[e]
	if !ok {
		return
	}
	for t := range set {
		fwd, ok := m.forward[t]
		if !ok {
			continue
		}
		idx, exists := fwd.Get(e)
		if !exists {
			continue
		}
		fwd.Del(e)
		if inv, ok := m.inverse[t]; ok {
			inv.Del(idx)
		}
	}
	delete(m.byEntity, e)
}

// Inverse returns a snapshot of all (index, entity) pairs for type t, for
// use by the compactor.
func (m *Map) Inverse(t typekey.TypeKey) map[int]entityid.EntityId {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := make(map[int]entityid.EntityId)
	inv, ok := m.inverse[t]
	if !ok {
		return snap
	}
	inv.ForEach(func(idx int, e entityid.EntityId) bool {
		snap[idx] = e
		return true
	})
	return snap
}

// TypesFor enumerates the types entity currently owns, used for the
// free-entity cascade.
func (m *Map) TypesFor(e entityid.EntityId) []typekey.TypeKey {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.byEntity[e]
	if !ok {
		return nil
	}
	out := make([]typekey.TypeKey, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}
