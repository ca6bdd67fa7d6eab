// Package errkind holds the sentinel errors shared across the storage
// layers. Keeping them in one leaf package (rather than defining them
// per-layer and re-wrapping at each boundary) means a caller anywhere in
// the stack can errors.Is against the same value the Level façade exposes.
package errkind

import "errors"

var (
	// NotFound means the entity does not own the requested type, or the
	// entity is unknown to the binding being queried.
	NotFound = errors.New("errkind: not found")

	// DuplicateComponent means give was invoked twice for the same
	// (entity, type) pair without an intervening empty.
	DuplicateComponent = errors.New("errkind: duplicate component")

	// Empty means the slot exists but is logically empty.
	Empty = errors.New("errkind: cell is empty")

	// TypeMismatch means the cell, or the type-erased slab handle, does
	// not hold a value of the requested type. Always a programmer error,
	// always recoverable.
	TypeMismatch = errors.New("errkind: type mismatch")

	// OutOfBounds means the index is beyond the slab's current length.
	OutOfBounds = errors.New("errkind: index out of bounds")

	// LockPoisoned means a prior holder of a lock panicked while holding
	// it; the panic was recovered and converted to this error.
	LockPoisoned = errors.New("errkind: lock poisoned")

	// AllocatorLeak means an allocated index is neither packed, free,
	// nor owned by any entity — an internal bookkeeping bug.
	AllocatorLeak = errors.New("errkind: allocator leak")
)
