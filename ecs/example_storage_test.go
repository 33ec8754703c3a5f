package ecs_test

import (
	"fmt"

	"github.com/plus3/framecore/ecs"
)

// ExampleStorage shows the basic entity lifecycle, including how ids of deleted entities go
// stale instead of aliasing whatever reuses their slot.
func ExampleStorage() {
	storage := ecs.NewStorage(newTestRegistry())

	camera := storage.Spawn(Position{X: 10, Y: 20, Z: 5}, Label{Value: "camera"})
	pos := ecs.ReadComponent[Position](storage, camera)
	fmt.Printf("camera at (%.0f, %.0f, %.0f)\n", pos.X, pos.Y, pos.Z)

	storage.Delete(camera)
	replacement := storage.Spawn(Position{}, Label{Value: "replacement"})
	fmt.Println("old id alive:", storage.Alive(camera))
	fmt.Println("same slot:", camera.Index() == replacement.Index())

	// Output:
	// camera at (10, 20, 5)
	// old id alive: false
	// same slot: true
}
