// Package perframe rotates a fixed set of per-frame resources so the CPU can fill one slot while
// the GPU still reads the others.
package perframe

import (
	"errors"
	"fmt"
)

// DefaultFrames is the number of frames in flight used when nothing else is configured.
const DefaultFrames = 3

var ErrEmptyRing = errors.New("perframe: ring needs at least one slot")

// Ring holds n slots and a current index. It only rotates; waiting for the GPU to release a slot
// is up to the owner of the slots.
type Ring[T any] struct {
	slots []T
	index int
}

// New creates a ring of n slots built by init.
func New[T any](n int, init func(i int) T) (*Ring[T], error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrEmptyRing, n)
	}
	r := &Ring[T]{slots: make([]T, n)}
	for i := range r.slots {
		r.slots[i] = init(i)
	}
	return r, nil
}

// Current returns the slot of the frame being built.
func (r *Ring[T]) Current() *T {
	return &r.slots[r.index]
}

// Advance moves to the next slot, wrapping around, and returns it.
func (r *Ring[T]) Advance() *T {
	r.index = (r.index + 1) % len(r.slots)
	return r.Current()
}

// Index returns the current slot index.
func (r *Ring[T]) Index() int {
	return r.index
}

// Len returns the number of slots.
func (r *Ring[T]) Len() int {
	return len(r.slots)
}
