// Package indexset implements per-TypeKey index bookkeeping: a packed set
// of live indices, a free min-heap of recyclable indices, and a next
// high-water mark. Allocation always draws the smallest free index first,
// which is what lets the compactor left-pack deterministically.
package indexset

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/kamstrup/intmap"
)

// minHeap is a small container/heap.Interface over ints. None of the
// libraries in the pack ship an ordered min-extraction set — intmap is an
// unordered hash map — so this one piece of bookkeeping is built on the
// standard library's container/heap rather than a third-party structure.
type minHeap []int

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// IndexSet is one TypeKey's index allocator and recycler.
type IndexSet struct {
	mu     sync.Mutex
	packed *intmap.Map[int, struct{}]
	free   *minHeap
	next   int
}

// New creates an empty IndexSet.
func New() *IndexSet {
	h := make(minHeap, 0)
	return &IndexSet{
		packed: intmap.New[int, struct{}](64),
		free:   &h,
	}
}

// Allocate returns the smallest recycled index if one exists, otherwise
// next (which is then incremented), and marks the result as packed.
// Allocation never fails.
func (is *IndexSet) Allocate() int {
	is.mu.Lock()
	defer is.mu.Unlock()

	var idx int
	if is.free.Len() > 0 {
		idx = heap.Pop(is.free).(int)
	} else {
		idx = is.next
		is.next++
	}
	is.packed.Put(idx, struct{}{})
	return idx
}

// Deallocate removes i from packed and returns it to free. A no-op if i
// is not currently packed.
func (is *IndexSet) Deallocate(i int) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if _, ok := is.packed.Get(i); !ok {
		return
	}
	is.packed.Del(i)
	heap.Push(is.free, i)
}

// Reset clears free, sets packed to {0, ..., n-1}, and sets next to n.
// Called by the compactor after it has left-packed a slab down to n live
// cells.
func (is *IndexSet) Reset(n int) {
	is.mu.Lock()
	defer is.mu.Unlock()

	h := make(minHeap, 0)
	is.free = &h
	is.packed = intmap.New[int, struct{}](max(n, 1))
	for i := 0; i < n; i++ {
		is.packed.Put(i, struct{}{})
	}
	is.next = n
}

// IterPacked returns a snapshot of all currently live indices, ascending.
func (is *IndexSet) IterPacked() []int {
	is.mu.Lock()
	defer is.mu.Unlock()

	out := make([]int, 0, is.packed.Len())
	is.packed.ForEach(func(idx int, _ struct{}) bool {
		out = append(out, idx)
		return true
	})
	sort.Ints(out)
	return out
}

// IterFree returns a snapshot of all currently free indices, ascending.
func (is *IndexSet) IterFree() []int {
	is.mu.Lock()
	defer is.mu.Unlock()

	out := make([]int, len(*is.free))
	copy(out, *is.free)
	sort.Ints(out)
	return out
}

// PackedCount returns the number of currently live indices — the Level
// façade's notion of len(T).
func (is *IndexSet) PackedCount() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	return is.packed.Len()
}

// Next returns the current high-water mark.
func (is *IndexSet) Next() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	return is.next
}
