package slab_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/plus3/slabstore/errkind"
	"github.com/plus3/slabstore/slab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndRead(t *testing.T) {
	s := slab.New[int]()

	require.NoError(t, s.Insert(0, 42))
	v, err := s.Read(0)
	require.NoError(t, err)
	assert.Equal(t, 42, *v)
	assert.Equal(t, slab.StateOccupied, s.State(0))
}

func TestInsertGrowsAndInitializesEmpty(t *testing.T) {
	s := slab.New[int]()

	require.NoError(t, s.Insert(5, 99))
	assert.Equal(t, 6, s.Length())
	for i := 0; i < 5; i++ {
		assert.Equal(t, slab.StateEmpty, s.State(i))
	}
	assert.Equal(t, slab.StateOccupied, s.State(5))
}

func TestReadEmptyCellFails(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Empty(0))

	_, err := s.Read(0)
	assert.True(t, errors.Is(err, errkind.Empty))
}

func TestReadOutOfBoundsFails(t *testing.T) {
	s := slab.New[int]()
	_, err := s.Read(3)
	assert.True(t, errors.Is(err, errkind.OutOfBounds))
}

func TestEmptyIsIdempotent(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Empty(0))
	require.NoError(t, s.Empty(0))
	assert.Equal(t, slab.StateEmpty, s.State(0))
}

func TestMutate(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Mutate(0, func(v *int) { *v += 10 }))

	v, err := s.Read(0)
	require.NoError(t, err)
	assert.Equal(t, 11, *v)
}

func TestMutateOnEmptyFails(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Empty(0))
	err := s.Mutate(0, func(v *int) {})
	assert.True(t, errors.Is(err, errkind.Empty))
}

func TestSwap(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Insert(1, 2))

	require.NoError(t, s.Swap(0, 1))

	v0, _ := s.Read(0)
	v1, _ := s.Read(1)
	assert.Equal(t, 2, *v0)
	assert.Equal(t, 1, *v1)
}

func TestSwapSameIndexIsNoop(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Swap(0, 0))
	v, _ := s.Read(0)
	assert.Equal(t, 1, *v)
}

func TestResizeShrinksBackingArray(t *testing.T) {
	s := slab.New[int]()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Insert(i, i))
	}
	require.NoError(t, s.Resize(3))
	assert.Equal(t, 3, s.Length())

	_, err := s.Read(3)
	assert.True(t, errors.Is(err, errkind.OutOfBounds))
}

func TestResizeToZero(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 1))
	require.NoError(t, s.Resize(0))
	assert.Equal(t, 0, s.Length())
}

func TestConcurrentReadsDoNotRace(t *testing.T) {
	s := slab.New[int]()
	require.NoError(t, s.Insert(0, 7))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Read(0)
			assert.NoError(t, err)
			assert.Equal(t, 7, *v)
		}()
	}
	wg.Wait()
}
