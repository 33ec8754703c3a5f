// Package sim is the simulation world the renderer draws: camera, terrain, model instances and
// animated characters, stepped by ecs systems.
package sim

import (
	"math"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/arena"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
)

// Up is the world up axis. X and Y span the ground plane.
var Up = mgl32.Vec3{0, 0, 1}

const maxPitch = 89

// Camera is a free camera. Yaw turns around Up starting at +X; negative pitch looks down.
// Angles are in degrees.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	FovY     float32
	Near     float32
	Far      float32
}

// Forward returns the unit view direction.
func (c Camera) Forward() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(max(min(c.Pitch, maxPitch), -maxPitch)))
	return mgl32.Vec3{
		float32(math.Cos(pitch) * math.Cos(yaw)),
		float32(math.Cos(pitch) * math.Sin(yaw)),
		float32(math.Sin(pitch)),
	}
}

// Compute derives the matrices and frustum for a viewport aspect ratio.
func (c Camera) Compute(aspect float32) ComputedCamera {
	forward := c.Forward()
	projection := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	view := mgl32.LookAtV(c.Position, c.Position.Add(forward), Up)
	vp := mathx.NewViewProjection(projection, view)
	return ComputedCamera{
		Position:       c.Position,
		Forward:        forward,
		Near:           c.Near,
		Far:            c.Far,
		ViewProjection: vp,
		Frustum:        vp.Frustum(),
	}
}

// ComputedCamera is recomputed from Camera every step.
type ComputedCamera struct {
	Position       mgl32.Vec3
	Forward        mgl32.Vec3
	Near, Far      float32
	ViewProjection mathx.ViewProjection
	Frustum        mathx.Frustum
}

// PickRay returns the world ray through a point in normalized device coordinates.
func (c ComputedCamera) PickRay(ndcX, ndcY float32) mathx.Ray {
	return c.ViewProjection.PickRay(ndcX, ndcY)
}

// ActiveCamera tags the camera the world is rendered from.
type ActiveCamera struct{}

// ModelInstance places a model in the world. Its position comes from the entity's Transform.
type ModelInstance struct {
	Model arena.Handle[assets.Model]
}

// Selected marks a model instance as highlighted.
type Selected struct{}

// Animated drives a skeleton with a motion controller. Pose is rewritten whole every step.
type Animated struct {
	Controller *sequencer.Controller
	Skeleton   *animation.Skeleton
	Pose       animation.Pose
}

var typeOfSelected = reflect.TypeFor[Selected]()
