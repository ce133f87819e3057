package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotArrayInsertGet(t *testing.T) {
	sa := NewSlotArray[string](4)

	h1, err := sa.Insert("vertex-buffer")
	require.NoError(t, err)
	h2, err := sa.Insert("index-buffer")
	require.NoError(t, err)

	assert.Equal(t, uint32(0), h1.Index)
	assert.Equal(t, uint32(1), h2.Index)
	assert.Equal(t, uint32(2), sa.Len())

	v, ok := sa.Get(h1)
	require.True(t, ok)
	assert.Equal(t, "vertex-buffer", *v)
}

func TestSlotArrayStaleHandleNeverAliases(t *testing.T) {
	sa := NewSlotArray[string](2)

	stale, err := sa.Insert("old")
	require.NoError(t, err)
	require.True(t, sa.Release(stale))

	// Saturate the table so the released slot is reused.
	_, err = sa.Insert("a")
	require.NoError(t, err)
	_, err = sa.Insert("b")
	require.NoError(t, err)

	reused, err := sa.Insert("new occupant")
	require.NoError(t, err)
	assert.Equal(t, stale.Index, reused.Index, "released slot should be reused")

	// The stale handle must not resolve to the new occupant.
	_, ok := sa.Get(stale)
	assert.False(t, ok)

	v, ok := sa.Get(reused)
	require.True(t, ok)
	assert.Equal(t, "new occupant", *v)
}

func TestSlotArrayReleaseIdempotent(t *testing.T) {
	sa := NewSlotArray[int](2)

	h, err := sa.Insert(7)
	require.NoError(t, err)

	assert.True(t, sa.Release(h))
	assert.False(t, sa.Release(h), "double release through the same handle")
	assert.False(t, sa.Release(Handle{}), "nil handle")
	assert.False(t, sa.Release(Handle{Index: 99, Generation: 1}), "out of range")
}

func TestSlotArrayFullAndRandomizedChurn(t *testing.T) {
	sa := NewSlotArray[int](8)

	live := make(map[Handle]int)
	freed := make([]Handle, 0)

	for i := 0; i < 8; i++ {
		h, err := sa.Insert(i)
		require.NoError(t, err)
		live[h] = i
	}

	_, err := sa.Insert(99)
	assert.Error(t, err, "insert into a full table")

	// Free every even-index slot, then refill.
	for h := range live {
		if h.Index%2 == 0 {
			require.True(t, sa.Release(h))
			freed = append(freed, h)
			delete(live, h)
		}
	}
	for i := 0; i < len(freed); i++ {
		h, err := sa.Insert(100 + i)
		require.NoError(t, err)
		live[h] = 100 + i
	}

	// Every live handle resolves to exactly its own value; every freed
	// handle resolves to nothing.
	for h, want := range live {
		v, ok := sa.Get(h)
		require.True(t, ok)
		assert.Equal(t, want, *v)
	}
	for _, h := range freed {
		_, ok := sa.Get(h)
		assert.False(t, ok)
	}
}

func TestSlotArrayMonotoneIndicesBeforeAnyRelease(t *testing.T) {
	sa := NewSlotArray[int](16)
	prev := int64(-1)
	for i := 0; i < 16; i++ {
		h, err := sa.Insert(i)
		require.NoError(t, err)
		assert.Greater(t, int64(h.Index), prev)
		prev = int64(h.Index)
	}
}

func TestSlotArrayClear(t *testing.T) {
	sa := NewSlotArray[int](4)
	h, err := sa.Insert(1)
	require.NoError(t, err)
	sa.Clear()
	assert.Equal(t, uint32(0), sa.Len())
	_, ok := sa.Get(h)
	assert.False(t, ok)
}

// Teardown walks the table to destroy device objects, then clears it; the
// walk itself must never mutate the table, and every stale handle must miss
// afterwards.
func TestSlotArrayRangeThenClearDrainsAll(t *testing.T) {
	sa := NewSlotArray[int](8)
	handles := make([]Handle, 0, 5)
	for i := 0; i < 5; i++ {
		h, err := sa.Insert(i)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	visited := 0
	sa.Range(func(h Handle, v *int) bool {
		visited++
		return true
	})
	assert.Equal(t, 5, visited)
	assert.Equal(t, uint32(5), sa.Len(), "walk must not release")

	sa.Clear()
	assert.Equal(t, uint32(0), sa.Len())
	for _, h := range handles {
		_, ok := sa.Get(h)
		assert.False(t, ok)
	}

	h, err := sa.Insert(9)
	require.NoError(t, err)
	v, ok := sa.Get(h)
	require.True(t, ok)
	assert.Equal(t, 9, *v)
}

func TestStack(t *testing.T) {
	s := NewStack[uint32](2)
	assert.True(t, s.IsEmpty())
	s.Push(1)
	s.Push(2)
	v, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(2), v, "LIFO order")
	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)
	_, ok = s.Pop()
	assert.False(t, ok)
}
