package containers

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Handle references a slot in a SlotArray. It carries the generation the slot
// had when the handle was issued; once the slot is released and reused the
// generations diverge and the handle goes stale. The zero Handle is invalid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsNil reports whether the handle is the zero (never-issued) handle.
func (h Handle) IsNil() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("handle(%d:%d)", h.Index, h.Generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// SlotArray is a pre-sized slot table with a LIFO free-list and per-slot
// generation counters. Lookups through a stale handle report "not found"
// instead of aliasing the slot's new occupant.
//
// SlotArray is not safe for concurrent use; the renderer is single-writer
// per tick so no locking is required.
type SlotArray[T any] struct {
	slots     []slot[T]
	freeStack *Stack[uint32]
	// next never-used slot; grows monotonically until the table is saturated,
	// after which releases feed the free stack.
	cursor uint32
	count  uint32
}

func NewSlotArray[T any](capacity uint32) *SlotArray[T] {
	if capacity == 0 {
		core.LogFatal("slot array capacity must be > 0")
	}
	return &SlotArray[T]{
		slots:     make([]slot[T], capacity),
		freeStack: NewStack[uint32](int(capacity)),
	}
}

// Insert places value into the next free slot and returns its handle.
// Fresh slots are consumed in insertion order before any released slot is
// reused, so slot indices assigned during one load session are monotone.
func (sa *SlotArray[T]) Insert(value T) (Handle, error) {
	var index uint32
	if sa.cursor < uint32(len(sa.slots)) {
		index = sa.cursor
		sa.cursor++
	} else {
		i, ok := sa.freeStack.Pop()
		if !ok {
			err := fmt.Errorf("slot array is full (capacity=%d)", len(sa.slots))
			core.LogError(err.Error())
			return Handle{}, err
		}
		index = i
	}

	s := &sa.slots[index]
	if s.generation == 0 {
		// Generation 0 is reserved for the nil handle.
		s.generation = 1
	}
	s.value = value
	s.occupied = true
	sa.count++

	return Handle{Index: index, Generation: s.generation}, nil
}

// Get resolves a handle to its value. It returns false for the zero handle,
// out-of-range indices, empty slots and stale generations.
func (sa *SlotArray[T]) Get(h Handle) (*T, bool) {
	if h.IsNil() || h.Index >= uint32(len(sa.slots)) {
		return nil, false
	}
	s := &sa.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return nil, false
	}
	return &s.value, true
}

// MustGet is Get for hot paths where a miss is a programming error.
func (sa *SlotArray[T]) MustGet(h Handle) *T {
	v, ok := sa.Get(h)
	if !ok {
		core.LogFatal("dereference of invalid %s", h)
	}
	return v
}

// Release frees the slot behind h and bumps its generation so every
// outstanding handle to it goes stale. Releasing through a stale or nil
// handle is a no-op and returns false.
func (sa *SlotArray[T]) Release(h Handle) bool {
	if h.IsNil() || h.Index >= uint32(len(sa.slots)) {
		return false
	}
	s := &sa.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return false
	}
	var zero T
	s.value = zero
	s.occupied = false
	s.generation++
	sa.count--
	sa.freeStack.Push(h.Index)
	return true
}

func (sa *SlotArray[T]) Len() uint32 {
	return sa.count
}

func (sa *SlotArray[T]) Capacity() uint32 {
	return uint32(len(sa.slots))
}

// Range calls fn for every occupied slot in index order. Returning false
// stops the walk. The callback must not insert or release.
func (sa *SlotArray[T]) Range(fn func(h Handle, value *T) bool) {
	for i := range sa.slots {
		s := &sa.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.generation}, &s.value) {
			return
		}
	}
}

// Clear releases every occupied slot. Used at arena teardown after the GPU
// is confirmed idle.
func (sa *SlotArray[T]) Clear() {
	for i := range sa.slots {
		s := &sa.slots[i]
		if !s.occupied {
			continue
		}
		var zero T
		s.value = zero
		s.occupied = false
		s.generation++
		sa.freeStack.Push(uint32(i))
	}
	sa.count = 0
}
