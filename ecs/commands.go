package ecs

import "reflect"

// Commands buffers structural changes queued by systems; the scheduler applies them after every
// system of the frame has run.
type Commands struct {
	spawns  []spawnCommand
	deletes []EntityId
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// Flush applies the buffered commands in order deletes, removes, adds, spawns, defers, then
// resets the buffer. An entity that moves archetype during the flush keeps receiving its later
// commands; commands aimed at deleted or stale entities are dropped.
func (c *Commands) Flush(storage *Storage) {
	moved := make(map[EntityId]EntityId)
	resolve := func(id EntityId) EntityId {
		for {
			next, ok := moved[id]
			if !ok {
				return id
			}
			id = next
		}
	}

	for _, cmd := range c.deletes {
		storage.Delete(cmd)
	}

	for _, cmd := range c.removes {
		id := resolve(cmd.entity)
		if newId := storage.RemoveComponent(id, cmd.compType); newId != id {
			moved[id] = newId
		}
	}

	for _, cmd := range c.adds {
		id := resolve(cmd.entity)
		if newId := storage.AddComponent(id, cmd.component); newId != id {
			moved[id] = newId
		}
	}

	for _, cmd := range c.spawns {
		storage.Spawn(cmd.components...)
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
}
