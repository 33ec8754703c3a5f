package ecs

import (
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/kamstrup/intmap"
)

// Storage is the main ECS storage interface
type Storage struct {
	registry   *ComponentRegistry
	archetypes []*Archetype
	byKey      *intmap.Map[uint64, *Archetype]

	singletons     map[reflect.Type]*singletonEntry
	singletonOrder []reflect.Type
}

type singletonEntry struct {
	value   reflect.Value
	dataPtr unsafe.Pointer
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		registry:   registry,
		byKey:      intmap.New[uint64, *Archetype](64),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
}

// archetypeFor returns the archetype for a sorted type set, creating it on first use.
// Key collisions between different type sets probe the next key.
func (s *Storage) archetypeFor(types []reflect.Type) *Archetype {
	key := hashTypes(types)
	for {
		a, ok := s.byKey.Get(key)
		if !ok {
			break
		}
		if slices.Equal(a.types, types) {
			return a
		}
		key++
	}

	if len(s.archetypes) >= math.MaxUint16 {
		panic("archetype limit reached")
	}
	a := newArchetype(uint16(len(s.archetypes)+1), key, types, s.registry)
	s.archetypes = append(s.archetypes, a)
	s.byKey.Put(key, a)
	return a
}

func (s *Storage) lookupArchetype(types []reflect.Type) *Archetype {
	for key := hashTypes(types); ; key++ {
		a, ok := s.byKey.Get(key)
		if !ok {
			return nil
		}
		if slices.Equal(a.types, types) {
			return a
		}
	}
}

// archetypeOf returns the archetype an id points into, live or not.
func (s *Storage) archetypeOf(id EntityId) *Archetype {
	slot := int(id.ArchetypeId())
	if slot == 0 || slot > len(s.archetypes) {
		return nil
	}
	return s.archetypes[slot-1]
}

func (s *Storage) live(id EntityId) *Archetype {
	a := s.archetypeOf(id)
	if a == nil || !a.contains(id) {
		return nil
	}
	return a
}

// Alive reports whether id refers to an entity that has not been deleted or moved.
func (s *Storage) Alive(id EntityId) bool {
	return s.live(id) != nil
}

// GetArchetype returns an archetype storage (if one exists)
func (s *Storage) GetArchetype(components ...any) *Archetype {
	return s.lookupArchetype(extractComponentTypes(components))
}

// GetArchetypeByTypes returns an archetype storage (if one exists) based on reflect.Type
func (s *Storage) GetArchetypeByTypes(types []reflect.Type) *Archetype {
	types = slices.Clone(types)
	sort.Sort(byTypeName(types))
	return s.lookupArchetype(types)
}

// Archetypes returns every archetype in creation order.
func (s *Storage) Archetypes() []*Archetype {
	return s.archetypes
}

// Spawn creates a new entity with the provided components
func (s *Storage) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}
	return s.archetypeFor(extractComponentTypes(components)).Spawn(components)
}

// Delete removes the entity. Deleting a stale id is a no-op that returns false.
func (s *Storage) Delete(id EntityId) bool {
	a := s.live(id)
	if a == nil {
		return false
	}
	a.remove(id.Index())
	return true
}

// AddComponent adds or replaces a component. Adding a new type moves the entity to another
// archetype and returns its new id; the old id goes stale. Stale ids return NoEntity.
func (s *Storage) AddComponent(id EntityId, component any) EntityId {
	oldArchetype := s.live(id)
	if oldArchetype == nil {
		return NoEntity
	}

	compType := componentType(component)
	if idx := oldArchetype.typeIndex(compType); idx != -1 {
		oldArchetype.storages[idx].Set(int(id.Index()), component)
		return id
	}

	newTypes := make([]reflect.Type, 0, len(oldArchetype.types)+1)
	newTypes = append(newTypes, oldArchetype.types...)
	newTypes = append(newTypes, compType)
	sort.Sort(byTypeName(newTypes))

	components := make([]any, 0, len(newTypes))
	for _, typ := range newTypes {
		if typ == compType {
			components = append(components, component)
		} else {
			components = append(components, oldArchetype.GetComponent(id.Index(), typ))
		}
	}

	return s.move(id, oldArchetype, newTypes, components)
}

// RemoveComponent removes a component type and returns the entity's new id. Removing the last
// component deletes the entity and returns NoEntity.
func (s *Storage) RemoveComponent(id EntityId, compType reflect.Type) EntityId {
	oldArchetype := s.live(id)
	if oldArchetype == nil {
		return NoEntity
	}
	if !oldArchetype.HasComponent(compType) {
		return id
	}

	newTypes := make([]reflect.Type, 0, len(oldArchetype.types)-1)
	for _, typ := range oldArchetype.types {
		if typ != compType {
			newTypes = append(newTypes, typ)
		}
	}

	if len(newTypes) == 0 {
		oldArchetype.remove(id.Index())
		return NoEntity
	}

	components := make([]any, 0, len(newTypes))
	for _, typ := range newTypes {
		components = append(components, oldArchetype.GetComponent(id.Index(), typ))
	}

	return s.move(id, oldArchetype, newTypes, components)
}

func (s *Storage) move(id EntityId, from *Archetype, types []reflect.Type, components []any) EntityId {
	newId := s.archetypeFor(types).Spawn(components)
	from.remove(id.Index())
	return newId
}

// GetComponent returns the component for the given entity ID and component type, or nil when the
// entity is stale or lacks the component.
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	a := s.live(id)
	if a == nil {
		return nil
	}
	return a.GetComponent(id.Index(), compType)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	a := s.live(id)
	return a != nil && a.HasComponent(compType)
}

// AddSingleton stores value as the singleton of its type, overwriting an existing one in place.
func (s *Storage) AddSingleton(value any) {
	t := reflect.TypeOf(value)
	if t == nil {
		panic("singleton value cannot be nil")
	}

	if entry, ok := s.singletons[t]; ok {
		entry.value.Elem().Set(reflect.ValueOf(value))
		return
	}

	ptr := reflect.New(t)
	ptr.Elem().Set(reflect.ValueOf(value))
	s.singletons[t] = &singletonEntry{value: ptr, dataPtr: ptr.UnsafePointer()}
	s.singletonOrder = append(s.singletonOrder, t)
}

func (s *Storage) getSingletonEntry(t reflect.Type) *singletonEntry {
	return s.singletons[t]
}

// StorageStats summarises the contents of a Storage.
type StorageStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	SingletonCount     int
	ArchetypeBreakdown []ArchetypeStats
	SingletonTypes     []string
}

// ArchetypeStats describes a single archetype.
type ArchetypeStats struct {
	ID             uint16
	Key            uint64
	ComponentTypes []string
	EntityCount    int
}

// CollectStats walks every archetype and singleton.
func (s *Storage) CollectStats() StorageStats {
	stats := StorageStats{
		ArchetypeCount:     len(s.archetypes),
		SingletonCount:     len(s.singletonOrder),
		ArchetypeBreakdown: make([]ArchetypeStats, 0, len(s.archetypes)),
		SingletonTypes:     make([]string, 0, len(s.singletonOrder)),
	}

	for _, a := range s.archetypes {
		names := make([]string, len(a.types))
		for i, t := range a.types {
			names[i] = t.String()
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:             a.id,
			Key:            a.key,
			ComponentTypes: names,
			EntityCount:    a.count,
		})
		stats.TotalEntityCount += a.count
	}

	for _, t := range s.singletonOrder {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	return stats
}

func componentType(comp any) reflect.Type {
	t := reflect.TypeOf(comp)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// extractComponentTypes extracts and sorts component types from a slice of components
func extractComponentTypes(components []any) []reflect.Type {
	types := make([]reflect.Type, 0, len(components))
	for _, comp := range components {
		compType := componentType(comp)

		// Components can be structs or primitives, not reference-like kinds.
		switch compType.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
			panic("components cannot be pointers, maps, channels, or functions")
		}
		if slices.Contains(types, compType) {
			panic("duplicate component type " + compType.String())
		}

		types = append(types, compType)
	}
	sort.Sort(byTypeName(types))
	return types
}

// hashTypes hashes the names of a sorted type set.
func hashTypes(types []reflect.Type) uint64 {
	var b strings.Builder
	for _, t := range types {
		b.WriteString(t.PkgPath())
		b.WriteByte('.')
		b.WriteString(t.String())
		b.WriteByte(';')
	}
	return xxhash.Sum64String(b.String())
}

type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns a typed pointer to an entity's component, or nil.
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	c, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return c
}
