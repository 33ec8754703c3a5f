package ecs

import (
	"iter"
	"reflect"
)

// iComponentStorage is a type-erased component storage.
type iComponentStorage interface {
	Append(item any) int
	Set(index int, item any) bool
	Delete(index int)
	Retire(index int)
	Get(index int) any
	Has(index int) bool
	Iter() iter.Seq[int]
}

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage instance has its own ComponentRegistry, allowing multiple
// independent worlds to coexist without interference.
type ComponentRegistry struct {
	factories map[reflect.Type]func() iComponentStorage
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]func() iComponentStorage),
	}
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
func RegisterComponent[T any](r *ComponentRegistry) {
	r.factories[reflect.TypeFor[T]()] = func() iComponentStorage {
		return &genericComponentStorage[T]{}
	}
}

// Registered reports whether a component type has a storage factory.
func (r *ComponentRegistry) Registered(t reflect.Type) bool {
	_, ok := r.factories[t]
	return ok
}

func (r *ComponentRegistry) getFactory(t reflect.Type) func() iComponentStorage {
	return r.factories[t]
}

const genericBlockSize = 64

type componentBlock[T any] struct {
	values [genericBlockSize]T
	filled [genericBlockSize]bool
}

// genericComponentStorage stores components of type T in fixed blocks. Blocks are never moved,
// so pointers returned by Get stay valid while the world grows.
type genericComponentStorage[T any] struct {
	blocks    []*componentBlock[T]
	freeSlots []int
	nextIndex int
}

func asComponent[T any](item any) (T, bool) {
	if ptr, ok := item.(*T); ok && ptr != nil {
		return *ptr, true
	}
	val, ok := item.(T)
	return val, ok
}

func (cs *genericComponentStorage[T]) slot(index int) (*componentBlock[T], int, bool) {
	if index < 0 || index >= cs.nextIndex {
		return nil, 0, false
	}
	return cs.blocks[index/genericBlockSize], index % genericBlockSize, true
}

// Append adds a component to storage and returns its index, or -1 for a value of the wrong type.
func (cs *genericComponentStorage[T]) Append(item any) int {
	value, ok := asComponent[T](item)
	if !ok {
		return -1
	}

	var index int
	if n := len(cs.freeSlots); n > 0 {
		index = cs.freeSlots[n-1]
		cs.freeSlots = cs.freeSlots[:n-1]
	} else {
		index = cs.nextIndex
		cs.nextIndex++
		if index/genericBlockSize >= len(cs.blocks) {
			cs.blocks = append(cs.blocks, new(componentBlock[T]))
		}
	}

	block, i, _ := cs.slot(index)
	block.values[i] = value
	block.filled[i] = true
	return index
}

// Set overwrites a live component in place.
func (cs *genericComponentStorage[T]) Set(index int, item any) bool {
	value, ok := asComponent[T](item)
	if !ok {
		return false
	}
	block, i, ok := cs.slot(index)
	if !ok || !block.filled[i] {
		return false
	}
	block.values[i] = value
	return true
}

// Get returns a pointer to the component at the given index.
func (cs *genericComponentStorage[T]) Get(index int) any {
	block, i, ok := cs.slot(index)
	if !ok || !block.filled[i] {
		return nil
	}
	return &block.values[i]
}

// Delete marks a component slot as empty.
func (cs *genericComponentStorage[T]) Delete(index int) {
	block, i, ok := cs.slot(index)
	if !ok || !block.filled[i] {
		return
	}
	var zero T
	block.values[i] = zero
	block.filled[i] = false
	cs.freeSlots = append(cs.freeSlots, index)
}

// Retire empties a slot without returning it to the free list, so the index is never handed out
// again.
func (cs *genericComponentStorage[T]) Retire(index int) {
	block, i, ok := cs.slot(index)
	if !ok || !block.filled[i] {
		return
	}
	var zero T
	block.values[i] = zero
	block.filled[i] = false
}

// Has checks if a component exists at the given index.
func (cs *genericComponentStorage[T]) Has(index int) bool {
	block, i, ok := cs.slot(index)
	return ok && block.filled[i]
}

func (cs *genericComponentStorage[T]) Iter() iter.Seq[int] {
	return func(yield func(int) bool) {
		for index := 0; index < cs.nextIndex; index++ {
			if cs.blocks[index/genericBlockSize].filled[index%genericBlockSize] && !yield(index) {
				return
			}
		}
	}
}
