// Package arena provides a slot-based store addressed by generation-checked handles.
// A handle that outlives the value it was issued for resolves to nothing, even after
// its slot has been reused.
package arena

import (
	"fmt"
	"iter"
	"math"
)

const blockSize = 64

// Handle addresses a value inside an Arena[T]. The zero Handle is never valid.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// Index returns the slot index of the handle.
func (h Handle[T]) Index() uint32 {
	return h.index
}

// Generation returns the generation the handle was issued with.
func (h Handle[T]) Generation() uint32 {
	return h.generation
}

// Key packs the handle into a single integer, for use as a map key.
func (h Handle[T]) Key() uint64 {
	return uint64(h.generation)<<32 | uint64(h.index)
}

// IsZero reports whether h is the zero handle.
func (h Handle[T]) IsZero() bool {
	return h.generation == 0
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("Handle(%d@%d)", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	filled     bool
}

// Arena stores values in fixed-size blocks and recycles freed slots. Every slot
// carries a generation counter that is bumped on reuse. Blocks never move, so pointers
// returned by Get stay valid until the value is removed.
type Arena[T any] struct {
	blocks    []*[blockSize]slot[T]
	freeSlots []uint32
	nextIndex uint32
	count     int
}

// New creates an arena with room for capacity values before growing.
func New[T any](capacity int) *Arena[T] {
	blocks := (capacity + blockSize - 1) / blockSize
	return &Arena[T]{
		blocks: make([]*[blockSize]slot[T], 0, blocks),
	}
}

// Insert stores value and returns a handle to it.
func (a *Arena[T]) Insert(value T) Handle[T] {
	var index uint32
	if n := len(a.freeSlots); n > 0 {
		index = a.freeSlots[n-1]
		a.freeSlots = a.freeSlots[:n-1]
	} else {
		index = a.nextIndex
		a.nextIndex++
		if int(index/blockSize) >= len(a.blocks) {
			a.blocks = append(a.blocks, new([blockSize]slot[T]))
		}
	}

	s := &a.blocks[index/blockSize][index%blockSize]
	s.generation++
	s.value = value
	s.filled = true
	a.count++

	return Handle[T]{index: index, generation: s.generation}
}

func (a *Arena[T]) slot(h Handle[T]) *slot[T] {
	if h.generation == 0 || h.index >= a.nextIndex {
		return nil
	}
	s := &a.blocks[h.index/blockSize][h.index%blockSize]
	if !s.filled || s.generation != h.generation {
		return nil
	}
	return s
}

// Get returns a pointer to the value behind h, or false when h is stale or unknown.
func (a *Arena[T]) Get(h Handle[T]) (*T, bool) {
	s := a.slot(h)
	if s == nil {
		return nil, false
	}
	return &s.value, true
}

// Contains reports whether h still refers to a live value.
func (a *Arena[T]) Contains(h Handle[T]) bool {
	return a.slot(h) != nil
}

// Remove frees the slot behind h and returns the value it held.
func (a *Arena[T]) Remove(h Handle[T]) (T, bool) {
	var zero T
	s := a.slot(h)
	if s == nil {
		return zero, false
	}
	value := s.value
	s.value = zero
	s.filled = false
	// A slot at the last generation is never reused; wrapping would revive old handles.
	if s.generation != math.MaxUint32 {
		a.freeSlots = append(a.freeSlots, h.index)
	}
	a.count--
	return value, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.count
}

// All iterates live values in slot order.
func (a *Arena[T]) All() iter.Seq2[Handle[T], *T] {
	return func(yield func(Handle[T], *T) bool) {
		for i := uint32(0); i < a.nextIndex; i++ {
			s := &a.blocks[i/blockSize][i%blockSize]
			if !s.filled {
				continue
			}
			if !yield(Handle[T]{index: i, generation: s.generation}, &s.value) {
				return
			}
		}
	}
}
