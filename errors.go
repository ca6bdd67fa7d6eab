package slabstore

import "github.com/plus3/slabstore/errkind"

// Error kinds returned at the Level façade. All are ordinary sentinel
// errors — compare with errors.Is, never by message text. Deeper layers
// (slab, indexset, ownership) return the same values, so a caller never
// sees a kind get lost in translation as it crosses a layer boundary.
var (
	// ErrNotFound means the entity does not own the requested type, or
	// the entity is unknown.
	ErrNotFound = errkind.NotFound

	// ErrDuplicateComponent means Give was invoked twice for the same
	// (entity, type) without an intervening Empty.
	ErrDuplicateComponent = errkind.DuplicateComponent

	// ErrEmpty means the slot exists but is logically empty.
	ErrEmpty = errkind.Empty

	// ErrTypeMismatch means the TypeKey passed in does not match the
	// type the slab was created for — always a caller bug.
	ErrTypeMismatch = errkind.TypeMismatch

	// ErrOutOfBounds means the index is beyond the slab's length.
	ErrOutOfBounds = errkind.OutOfBounds

	// ErrLockPoisoned means a prior holder of a lock panicked; the
	// panic was recovered and converted to this error, and the backing
	// data structures remain in a valid state.
	ErrLockPoisoned = errkind.LockPoisoned

	// ErrAllocatorLeak means CheckAllocatorHealth found an index that is
	// neither packed, free, nor owned by any entity.
	ErrAllocatorLeak = errkind.AllocatorLeak
)
