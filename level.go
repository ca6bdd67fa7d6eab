package slabstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"

	"github.com/plus3/slabstore/compact"
	"github.com/plus3/slabstore/entityid"
	"github.com/plus3/slabstore/indexset"
	"github.com/plus3/slabstore/ownership"
	"github.com/plus3/slabstore/slab"
	"github.com/plus3/slabstore/typekey"
)

// EntityId re-exports entityid.EntityId so callers don't need a second
// import for the common case.
type EntityId = entityid.EntityId

// TypeKey re-exports typekey.TypeKey.
type TypeKey = typekey.TypeKey

// typeEntry is everything the Level keeps for one registered TypeKey.
type typeEntry struct {
	// mu is the slab lock (lock hierarchy level 2): read-locked for
	// point access by index, write-locked only to grow, resize, swap,
	// or truncate — which in practice means only compaction takes it
	// for writing, since Slab.Insert/Replace/Empty/Mutate manage their
	// own per-cell locks once the array is large enough.
	mu sync.RWMutex

	// structural is the type-erased view used by code that doesn't (or
	// mustn't) know T: Empty, Capacity, maybe-compact, Compress.
	structural slab.Structural

	// boxed is the concrete *slab.Slab[T], recovered with a type
	// assertion by the generic Give/Read/Mutate/Set wrappers below.
	boxed any

	index *indexset.IndexSet
}

// Level is the façade translating entity-centric operations into
// (TypeKey, index) operations against the slab, index set, and ownership
// map. It is a plain value owned by the caller — there is no process-wide
// singleton.
type Level struct {
	// storageMu is the outer storage lock (lock hierarchy level 1):
	// write-locked only to add a new TypeKey (the first Give of that
	// type), read-locked for every lookup of an existing type.
	storageMu sync.RWMutex
	types     map[typekey.TypeKey]*typeEntry

	registry  *typekey.Registry
	ownership *ownership.Map
	minter    *entityid.Minter
	config    Config

	// compactLocks marks, one bit per TypeKey (typekey.TypeKey.BitIndex),
	// which types currently have a compaction in flight. It is advisory
	// bookkeeping for introspection and the stress CLI, not a
	// correctness mechanism — typeEntry.mu already serializes compaction
	// against every other mutator of that type.
	compactLocks   mask.Mask256
	compactLocksMu sync.Mutex
}

// NewLevel creates a Level using DefaultConfig.
func NewLevel() *Level {
	return newLevel(DefaultConfig())
}

// NewLevelWithConfig creates a Level using the given Config.
func NewLevelWithConfig(cfg Config) *Level {
	return newLevel(cfg)
}

func newLevel(cfg Config) *Level {
	return &Level{
		types:     make(map[typekey.TypeKey]*typeEntry),
		registry:  typekey.NewRegistry(),
		ownership: ownership.New(),
		minter:    entityid.NewMinter(),
		config:    cfg,
	}
}

// Spawn mints a fresh entity id.
func (l *Level) Spawn() EntityId {
	return l.minter.Mint()
}

// RegisterComponent returns the TypeKey for T against l, minting one on
// first use. A generic method can't be declared on Level itself, so this
// stays a free function taking the Level as its first argument.
func RegisterComponent[T any](l *Level) TypeKey {
	return typekey.RegisterComponent[T](l.registry)
}

// getOrCreateEntry returns the typeEntry for key, creating a fresh
// *slab.Slab[T] on first use. Takes the storage write lock only when a
// new TypeKey is actually being added.
func getOrCreateEntry[T any](l *Level, key typekey.TypeKey) (*typeEntry, *slab.Slab[T], error) {
	l.storageMu.RLock()
	if e, ok := l.types[key]; ok {
		l.storageMu.RUnlock()
		typed, ok := e.boxed.(*slab.Slab[T])
		if !ok {
			return nil, nil, fmt.Errorf("slabstore: %w: type key reused with a different value type", ErrTypeMismatch)
		}
		return e, typed, nil
	}
	l.storageMu.RUnlock()

	l.storageMu.Lock()
	defer l.storageMu.Unlock()
	if e, ok := l.types[key]; ok {
		typed, ok := e.boxed.(*slab.Slab[T])
		if !ok {
			return nil, nil, fmt.Errorf("slabstore: %w: type key reused with a different value type", ErrTypeMismatch)
		}
		return e, typed, nil
	}
	s := slab.New[T]()
	e := &typeEntry{
		structural: s,
		boxed:      s,
		index:      indexset.New(),
	}
	l.types[key] = e
	return e, s, nil
}

// lookupTypedEntry returns the existing typeEntry for key without
// creating one. Used by operations that only make sense against an
// already-registered type (read, mutate, set).
func lookupTypedEntry[T any](l *Level, key typekey.TypeKey) (*typeEntry, *slab.Slab[T], error) {
	l.storageMu.RLock()
	defer l.storageMu.RUnlock()
	e, ok := l.types[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	typed, ok := e.boxed.(*slab.Slab[T])
	if !ok {
		return nil, nil, fmt.Errorf("slabstore: %w", ErrTypeMismatch)
	}
	return e, typed, nil
}

func (l *Level) lookupEntry(key typekey.TypeKey) (*typeEntry, bool) {
	l.storageMu.RLock()
	defer l.storageMu.RUnlock()
	e, ok := l.types[key]
	return e, ok
}

// Give attaches a component of type T to entity. Fails with
// DuplicateComponent if entity already owns T.
func Give[T any](l *Level, entity EntityId, key TypeKey, value T) (err error) {
	defer l.recoverPanic(&err)

	entry, typed, err := getOrCreateEntry[T](l, key)
	if err != nil {
		return err
	}

	entry.mu.RLock()
	idx := entry.index.Allocate()
	if err := typed.Insert(idx, value); err != nil {
		// Compensating deallocate: the index was observed allocated but
		// never bound, so it must not leak.
		entry.index.Deallocate(idx)
		entry.mu.RUnlock()
		return err
	}
	if err := l.ownership.Bind(entity, key, idx); err != nil {
		_ = typed.Empty(idx)
		entry.index.Deallocate(idx)
		entry.mu.RUnlock()
		return err
	}
	entry.mu.RUnlock()

	return l.maybeCompact(key, entry)
}

// Read returns the value of entity's component of type T.
func Read[T any](l *Level, entity EntityId, key TypeKey) (value T, err error) {
	defer l.recoverPanic(&err)

	entry, typed, err := lookupTypedEntry[T](l, key)
	if err != nil {
		return value, err
	}
	idx, err := l.ownership.Lookup(entity, key)
	if err != nil {
		return value, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	v, err := typed.Read(idx)
	if err != nil {
		return value, err
	}
	return *v, nil
}

// Mutate applies f in place to entity's component of type T.
func Mutate[T any](l *Level, entity EntityId, key TypeKey, f func(*T)) (err error) {
	defer l.recoverPanic(&err)

	entry, typed, err := lookupTypedEntry[T](l, key)
	if err != nil {
		return err
	}
	idx, err := l.ownership.Lookup(entity, key)
	if err != nil {
		return err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return typed.Mutate(idx, f)
}

// Set replaces entity's component of type T with value.
func Set[T any](l *Level, entity EntityId, key TypeKey, value T) (err error) {
	defer l.recoverPanic(&err)

	entry, typed, err := lookupTypedEntry[T](l, key)
	if err != nil {
		return err
	}
	idx, err := l.ownership.Lookup(entity, key)
	if err != nil {
		return err
	}

	entry.mu.RLock()
	if err := typed.Replace(idx, value); err != nil {
		entry.mu.RUnlock()
		return err
	}
	entry.mu.RUnlock()

	return l.maybeCompact(key, entry)
}

// Empty clears entity's component of type T, releasing the slot for
// reuse. Does not need T statically, since releasing a slot is a purely
// structural operation.
func (l *Level) Empty(entity EntityId, key TypeKey) (err error) {
	defer l.recoverPanic(&err)

	entry, ok := l.lookupEntry(key)
	if !ok {
		return ErrNotFound
	}

	idx, err := l.ownership.Lookup(entity, key)
	if err != nil {
		return err
	}
	if err := l.ownership.Unbind(entity, key); err != nil {
		return err
	}

	entry.mu.RLock()
	emptyErr := entry.structural.Empty(idx)
	entry.mu.RUnlock()
	if emptyErr != nil {
		return emptyErr
	}

	entry.index.Deallocate(idx)
	return l.maybeCompact(key, entry)
}

// FreeEntity empties every component entity owns, then forgets the
// entity entirely.
func (l *Level) FreeEntity(entity EntityId) (err error) {
	defer l.recoverPanic(&err)

	for _, t := range l.ownership.TypesFor(entity) {
		if err := l.Empty(entity, t); err != nil {
			return err
		}
	}
	l.ownership.Forget(entity)
	return nil
}

// Len returns the number of entities currently bound to TypeKey key.
func (l *Level) Len(key TypeKey) int {
	entry, ok := l.lookupEntry(key)
	if !ok {
		return 0
	}
	return entry.index.PackedCount()
}

// Capacity returns the physical length of TypeKey key's slab.
func (l *Level) Capacity(key TypeKey) int {
	entry, ok := l.lookupEntry(key)
	if !ok {
		return 0
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.structural.Length()
}

// Compress forces an immediate compaction of TypeKey key, regardless of
// the configured trigger thresholds.
func (l *Level) Compress(key TypeKey) (err error) {
	defer l.recoverPanic(&err)

	entry, ok := l.lookupEntry(key)
	if !ok {
		return ErrNotFound
	}
	return l.runCompaction(key, entry)
}

// maybeCompact triggers a compaction when capacity(T) >= CapacityFloor
// and len(T)/capacity(T) <= CompressionRatio, both evaluated in real
// arithmetic (the source's integer-division comparison was almost always
// zero — see spec's open questions).
func (l *Level) maybeCompact(key TypeKey, entry *typeEntry) error {
	entry.mu.RLock()
	capacity := entry.structural.Length()
	entry.mu.RUnlock()

	if capacity == 0 || capacity < l.config.CapacityFloor {
		return nil
	}
	length := entry.index.PackedCount()
	ratio := float64(length) / float64(capacity)
	if ratio > l.config.CompressionRatio {
		return nil
	}
	return l.runCompaction(key, entry)
}

// CompactingTypes returns the TypeKeys with a compaction in flight right
// now. A snapshot, not a lock — by the time the caller inspects the
// result it may already be stale. Intended for monitoring (the stress
// CLI polls it to report how much compaction overlaps live traffic), not
// for synchronization.
func (l *Level) CompactingTypes() []TypeKey {
	l.compactLocksMu.Lock()
	snapshot := l.compactLocks
	l.compactLocksMu.Unlock()

	l.storageMu.RLock()
	defer l.storageMu.RUnlock()

	var out []TypeKey
	for k := range l.types {
		bit := mask.Mask256{}
		bit.Mark(k.BitIndex())
		if snapshot.ContainsAll(bit) {
			out = append(out, k)
		}
	}
	return out
}

func (l *Level) runCompaction(key TypeKey, entry *typeEntry) (err error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	l.compactLocksMu.Lock()
	l.compactLocks.Mark(key.BitIndex())
	l.compactLocksMu.Unlock()
	defer func() {
		l.compactLocksMu.Lock()
		l.compactLocks.Unmark(key.BitIndex())
		l.compactLocksMu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			err = bark.AddTrace(fmt.Errorf("slabstore: %w: panic during compaction: %v", ErrLockPoisoned, r))
		}
	}()

	return compact.Compact(key, entry.structural, entry.index, l.ownership)
}

// recoverPanic converts a panic crossing a Level operation boundary into
// a LockPoisoned error: any panic while a lock is held is caught here
// rather than propagating to the caller.
func (l *Level) recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = bark.AddTrace(fmt.Errorf("slabstore: %w: %v", ErrLockPoisoned, r))
	}
}

// DebugString lists, sorted, the registered type names entity currently
// owns. A diagnostic helper, not in the hot path.
func (l *Level) DebugString(entity EntityId) string {
	types := l.ownership.TypesFor(entity)
	if len(types) == 0 {
		return "[]"
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, l.registry.Name(t))
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}

// CheckAllocatorHealth verifies, for TypeKey key, that every index is
// exactly one of packed-and-owned, or free-and-unowned — never both,
// never neither. Returns AllocatorLeak otherwise. A diagnostic hook, not
// called on any hot path.
func (l *Level) CheckAllocatorHealth(key TypeKey) error {
	entry, ok := l.lookupEntry(key)
	if !ok {
		return nil
	}

	packed := entry.index.IterPacked()
	free := entry.index.IterFree()
	next := entry.index.Next()
	owned := l.ownership.Inverse(key)

	packedSet := make(map[int]struct{}, len(packed))
	for _, i := range packed {
		packedSet[i] = struct{}{}
	}
	freeSet := make(map[int]struct{}, len(free))
	for _, i := range free {
		freeSet[i] = struct{}{}
	}

	for idx := range owned {
		if _, ok := packedSet[idx]; !ok {
			return fmt.Errorf("slabstore: %w: index %d owned but not packed", ErrAllocatorLeak, idx)
		}
	}
	for idx := range packedSet {
		if _, ok := owned[idx]; !ok {
			return fmt.Errorf("slabstore: %w: index %d packed but unowned", ErrAllocatorLeak, idx)
		}
		if _, ok := freeSet[idx]; ok {
			return fmt.Errorf("slabstore: %w: index %d both packed and free", ErrAllocatorLeak, idx)
		}
	}
	for idx := 0; idx < next; idx++ {
		_, isPacked := packedSet[idx]
		_, isFree := freeSet[idx]
		if !isPacked && !isFree {
			return fmt.Errorf("slabstore: %w: index %d neither packed nor free", ErrAllocatorLeak, idx)
		}
	}
	return nil
}
