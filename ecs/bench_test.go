package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/framecore/ecs"
)

func BenchmarkSpawn(b *testing.B) {
	storage := ecs.NewStorage(newTestRegistry())

	for b.Loop() {
		storage.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5})
	}
}

func BenchmarkGetComponent(b *testing.B) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5})

	for b.Loop() {
		_ = ecs.ReadComponent[Position](storage, id)
	}
}

func BenchmarkAddRemoveComponent(b *testing.B) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Position{})
	velocity := reflect.TypeFor[Velocity]()

	for b.Loop() {
		id = storage.AddComponent(id, Velocity{})
		id = storage.RemoveComponent(id, velocity)
	}
}

func BenchmarkQueryIterLarge(b *testing.B) {
	storage := ecs.NewStorage(newTestRegistry())
	for i := range 10000 {
		storage.Spawn(Position{X: float32(i)}, Velocity{DX: 1})
		if i%3 == 0 {
			storage.Spawn(Position{X: float32(i)}, Velocity{DX: 1}, Label{})
		}
	}
	q := ecs.NewQuery[struct {
		*Position
		*Velocity
	}](storage)

	for b.Loop() {
		q.Execute()
		for _, item := range q.Iter() {
			item.Position.X += item.Velocity.DX
		}
	}
}
