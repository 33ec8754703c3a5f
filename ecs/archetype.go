package ecs

import (
	"math"
	"reflect"
	"slices"
)

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

// Archetype represents a unique combination of component types. Every storage of an archetype
// allocates and frees slots in lockstep, so one index addresses all components of an entity.
type Archetype struct {
	id          uint16
	key         uint64
	types       []reflect.Type
	storages    []iComponentStorage
	generations []uint16
	count       int
}

func newArchetype(id uint16, key uint64, types []reflect.Type, registry *ComponentRegistry) *Archetype {
	a := &Archetype{
		id:       id,
		key:      key,
		types:    types,
		storages: make([]iComponentStorage, len(types)),
	}

	for idx, typ := range types {
		factory := registry.getFactory(typ)
		if factory == nil {
			panic("component type " + typ.String() + " not registered")
		}
		a.storages[idx] = factory()
	}

	return a
}

// Spawn stores one value per component type of the archetype and returns the new entity.
func (a *Archetype) Spawn(components []any) EntityId {
	index := -1
	for _, comp := range components {
		idx := a.typeIndex(componentType(comp))
		if idx == -1 {
			panic("component type " + componentType(comp).String() + " is not part of the archetype")
		}
		index = a.storages[idx].Append(comp)
	}

	for index >= len(a.generations) {
		a.generations = append(a.generations, 0)
	}
	a.count++
	return a.entityId(index)
}

func (a *Archetype) entityId(index int) EntityId {
	return NewEntityId(a.id, a.generations[index], uint32(index))
}

func (a *Archetype) typeIndex(compType reflect.Type) int {
	for i, typ := range a.types {
		if typ == compType {
			return i
		}
	}
	return -1
}

// contains reports whether id refers to a live entity of this archetype.
func (a *Archetype) contains(id EntityId) bool {
	index := int(id.Index())
	if id.ArchetypeId() != a.id || index >= len(a.generations) || len(a.storages) == 0 {
		return false
	}
	return a.generations[index] == id.Generation() && a.storages[0].Has(index)
}

// GetComponent returns the component of the given type stored at entityIndex.
// Callers holding an EntityId should go through Storage, which checks the generation.
func (a *Archetype) GetComponent(entityIndex uint32, compType reflect.Type) any {
	idx := a.typeIndex(compType)
	if idx == -1 {
		return nil
	}
	return a.storages[idx].Get(int(entityIndex))
}

// remove frees the slot and bumps its generation so outstanding ids go stale. A slot whose
// generation would wrap is retired instead, since reusing it would revive old ids.
func (a *Archetype) remove(entityIndex uint32) {
	if a.generations[entityIndex] == math.MaxUint16 {
		for _, storage := range a.storages {
			storage.Retire(int(entityIndex))
		}
		a.count--
		return
	}
	for _, storage := range a.storages {
		storage.Delete(int(entityIndex))
	}
	a.generations[entityIndex]++
	a.count--
}

// HasComponent checks if this archetype has the given component type
func (a *Archetype) HasComponent(compType reflect.Type) bool {
	return slices.Contains(a.types, compType)
}

// ID returns the archetype's slot.
func (a *Archetype) ID() uint16 {
	return a.id
}

// Key returns the hash of the archetype's component types.
func (a *Archetype) Key() uint64 {
	return a.key
}

// Types returns the sorted component types for this archetype
func (a *Archetype) Types() []reflect.Type {
	return a.types
}

// Len returns the number of live entities.
func (a *Archetype) Len() int {
	return a.count
}

// Iter returns an iterator over all live EntityIds in this archetype
func (a *Archetype) Iter() func(yield func(EntityId) bool) {
	return func(yield func(EntityId) bool) {
		if len(a.storages) == 0 {
			return
		}

		for index := range a.storages[0].Iter() {
			if !yield(a.entityId(index)) {
				return
			}
		}
	}
}
