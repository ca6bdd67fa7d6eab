// Package compact implements the compaction algorithm: packing a single
// TypeKey's live cells to the low end of its slab, rewriting the
// OwnershipMap to match, and shrinking the slab and IndexSet to fit.
//
// Builds an old-index -> new-index map while scanning for live cells and
// then asks every other collaborator that depends on index stability
// (here, the OwnershipMap) to follow that remapping.
package compact

import (
	"sort"

	"github.com/plus3/slabstore/entityid"
	"github.com/plus3/slabstore/indexset"
	"github.com/plus3/slabstore/slab"
	"github.com/plus3/slabstore/typekey"
)

// Ownership is the slice of OwnershipMap's behavior the compactor needs.
// Expressed as an interface so this package doesn't import the concrete
// ownership.Map and isn't forced to know about every TypeKey, just the
// one it's compacting.
type Ownership interface {
	Inverse(t typekey.TypeKey) map[int]entityid.EntityId
	Rebind(e entityid.EntityId, t typekey.TypeKey, newIdx int) error
}

// Compact left-packs the slab for t: every live cell moves to the
// position given by the ascending rank of its current index among all
// live indices, every (entity, t) binding is rebound to follow, and the
// slab and index set are shrunk to exactly the live count L.
//
// Precondition: no other goroutine is inserting, emptying, reading, or
// mutating components of type t — the caller (the Level façade) holds
// the per-type slab lock for writing for the whole call.
func Compact(t typekey.TypeKey, s slab.Structural, idx *indexset.IndexSet, own Ownership) error {
	inv := own.Inverse(t)
	live := len(inv)

	if live == 0 {
		if err := s.Resize(0); err != nil {
			return err
		}
		idx.Reset(0)
		return nil
	}

	liveIdx := make([]int, 0, live)
	for i := range inv {
		liveIdx = append(liveIdx, i)
	}
	sort.Ints(liveIdx)

	// liveIdx[r] is, by construction, the r-th smallest live index, so
	// its final position is r. Because rank(x) <= x for any live index
	// x (at most x distinct non-negative integers precede x), whatever
	// previously lived at position r has already been relocated by an
	// earlier step in this same ascending walk, or was never live to
	// begin with — so swapping source into position r here never
	// clobbers a value still awaiting its own move.
	for r, i := range liveIdx {
		if i == r {
			continue
		}
		if err := s.Swap(i, r); err != nil {
			return err
		}
		if err := own.Rebind(inv[i], t, r); err != nil {
			return err
		}
	}

	if err := s.Resize(live); err != nil {
		return err
	}
	idx.Reset(live)
	return nil
}
