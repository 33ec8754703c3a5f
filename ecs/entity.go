package ecs

// EntityId encodes the archetype slot (upper 16 bits), the slot generation (next 16 bits) and the
// storage index (lower 32 bits). The zero value never refers to an entity.
type EntityId uint64

// NoEntity is the zero EntityId.
const NoEntity EntityId = 0

// NewEntityId creates an EntityId from an archetype slot, a generation and a storage index
func NewEntityId(archetypeId uint16, generation uint16, index uint32) EntityId {
	return EntityId(uint64(archetypeId)<<48 | uint64(generation)<<32 | uint64(index))
}

// ArchetypeId extracts the archetype slot from the entity ID
func (e EntityId) ArchetypeId() uint16 {
	return uint16(e >> 48)
}

// Generation extracts the generation the storage slot had when the entity was spawned
func (e EntityId) Generation() uint16 {
	return uint16(e >> 32)
}

// Index extracts the storage index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}
