package ecs_test

import "github.com/plus3/framecore/ecs"

type Position struct {
	X, Y, Z float32
}

type Velocity struct {
	DX, DY, DZ float32
}

type Label struct {
	Value string
}

type Highlighted struct{}

type Score int32

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Label](registry)
	ecs.RegisterComponent[Highlighted](registry)
	ecs.RegisterComponent[Score](registry)
	return registry
}
