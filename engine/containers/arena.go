package containers

import "fmt"

// Handle is a stable reference into an Arena. A handle whose slot has been
// freed (or reused) no longer resolves.
type Handle struct {
	index      uint32
	generation uint32
}

// Invalid handle, never returned by Insert.
var NilHandle = Handle{}

func (h Handle) IsNil() bool {
	return h.generation == 0
}

// Less orders handles by slot index, then generation.
func (h Handle) Less(other Handle) bool {
	if h.index != other.index {
		return h.index < other.index
	}
	return h.generation < other.generation
}

// Compare returns -1, 0 or +1 following Less.
func (h Handle) Compare(other Handle) int {
	switch {
	case h.Less(other):
		return -1
	case other.Less(h):
		return 1
	default:
		return 0
	}
}

func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena stores values in reusable slots. Each reuse of a slot bumps its
// generation so handles to the previous occupant stop resolving.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

func (a *Arena[T]) Insert(value T) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[index]
	// generations start at 1 so the zero Handle never resolves
	s.generation++
	s.value = value
	s.occupied = true
	a.count++
	return Handle{index: index, generation: s.generation}
}

// Get resolves a handle. The second result is false when the value was removed.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if h.IsNil() || int(h.index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return zero, false
	}
	return s.value, true
}

func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot behind h. Removing a stale handle is a no-op and
// returns false.
func (a *Arena[T]) Remove(h Handle) bool {
	if !a.Contains(h) {
		return false
	}
	s := &a.slots[h.index]
	var zero T
	s.value = zero
	s.occupied = false
	a.free = append(a.free, h.index)
	a.count--
	return true
}

func (a *Arena[T]) Len() int {
	return a.count
}

// Each visits every live value in slot order.
func (a *Arena[T]) Each(fn func(Handle, T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.occupied {
			fn(Handle{index: uint32(i), generation: s.generation}, s.value)
		}
	}
}
