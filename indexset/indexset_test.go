package indexset_test

import (
	"testing"

	"github.com/plus3/slabstore/indexset"
	"github.com/stretchr/testify/assert"
)

func TestAllocateAssignsSequentialIndices(t *testing.T) {
	is := indexset.New()

	assert.Equal(t, 0, is.Allocate())
	assert.Equal(t, 1, is.Allocate())
	assert.Equal(t, 2, is.Allocate())
	assert.Equal(t, 3, is.PackedCount())
}

func TestDeallocateRecyclesSmallestFreeFirst(t *testing.T) {
	is := indexset.New()
	for i := 0; i < 5; i++ {
		is.Allocate()
	}

	is.Deallocate(3)
	is.Deallocate(1)

	assert.Equal(t, 1, is.Allocate())
	assert.Equal(t, 3, is.Allocate())
	assert.Equal(t, 5, is.Allocate())
}

func TestDeallocateNotPackedIsNoop(t *testing.T) {
	is := indexset.New()
	is.Allocate()
	is.Deallocate(99)
	assert.Equal(t, 1, is.PackedCount())
}

func TestResetRebuildsPackedRange(t *testing.T) {
	is := indexset.New()
	for i := 0; i < 10; i++ {
		is.Allocate()
	}
	is.Deallocate(2)
	is.Deallocate(4)

	is.Reset(3)

	assert.Equal(t, 3, is.PackedCount())
	assert.Equal(t, []int{0, 1, 2}, is.IterPacked())
	assert.Empty(t, is.IterFree())
	assert.Equal(t, 3, is.Next())
}

func TestIterPackedAndFreeAreSortedSnapshots(t *testing.T) {
	is := indexset.New()
	for i := 0; i < 5; i++ {
		is.Allocate()
	}
	is.Deallocate(4)
	is.Deallocate(1)
	is.Deallocate(3)

	assert.Equal(t, []int{0, 2}, is.IterPacked())
	assert.Equal(t, []int{1, 3, 4}, is.IterFree())
}
