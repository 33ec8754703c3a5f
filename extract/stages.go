package extract

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/sim"
	"github.com/plus3/framecore/snapshot"
)

// DefaultStages returns one fresh instance of every built-in stage.
func DefaultStages() []Stage {
	return []Stage{
		&CameraStage{},
		&EnvironmentStage{},
		NewTerrainStage(),
		NewModelsStage(),
		&UIStage{},
		&GizmoStage{},
	}
}

// CameraStage copies the active camera.
type CameraStage struct{}

func (*CameraStage) Name() string { return "camera" }

func (*CameraStage) Access() Access {
	return Access{Writes: []Resource{SnapshotCamera}}
}

func (*CameraStage) Extract(ctx *Context) error {
	cam, ok := ctx.World.ActiveCamera()
	if !ok {
		return sim.ErrNoCamera
	}
	ctx.Snapshot.Camera = snapshot.Camera{
		Position: cam.Position,
		Forward:  cam.Forward,
		Near:     cam.Near,
		Far:      cam.Far,
		ProjView: cam.ViewProjection.Mat,
		Frustum:  cam.Frustum,
	}
	return nil
}

// AmbientColor is the constant ambient light term.
var AmbientColor = mgl32.Vec3{0.3, 0.3, 0.3}

// EnvironmentStage samples the day/night cycle at the current time of day.
type EnvironmentStage struct{}

func (*EnvironmentStage) Name() string { return "environment" }

func (*EnvironmentStage) Access() Access {
	return Access{Writes: []Resource{SnapshotEnvironment}}
}

func (*EnvironmentStage) Extract(ctx *Context) error {
	w := ctx.World
	light := w.Lighting()
	ctx.Snapshot.Environment = snapshot.Environment{
		SimTime:         w.Clock().SimTime,
		SunDir:          light.SunDir,
		SunColor:        light.SunColor,
		AmbientColor:    AmbientColor,
		FogColor:        light.FogColor,
		FogDistance:     light.FogDistance,
		FogNearFraction: light.FogNearFraction,
	}
	return nil
}

// UIStage copies the requested rectangles with a top-left origin pixel projection.
type UIStage struct{}

func (*UIStage) Name() string { return "ui" }

func (*UIStage) Access() Access {
	return Access{Reads: []Resource{SnapshotCamera}, Writes: []Resource{SnapshotUI}}
}

func (*UIStage) Extract(ctx *Context) error {
	vp := ctx.World.Viewport()
	ui := &ctx.Snapshot.UI
	ui.ProjView = mgl32.Ortho(0, float32(vp.Width), float32(vp.Height), 0, -1, 1)

	rects := ctx.World.UI().Rects
	ui.Rects = make([]snapshot.UIRect, 0, len(rects))
	for _, r := range rects {
		a := mgl32.Vec2{float32(r.Pos[0]), float32(r.Pos[1])}
		b := a.Add(mgl32.Vec2{float32(r.Size[0]), float32(r.Size[1])})
		ui.Rects = append(ui.Rects, snapshot.UIRect{
			Min:   mgl32.Vec2{min(a.X(), b.X()), min(a.Y(), b.Y())},
			Max:   mgl32.Vec2{max(a.X(), b.X()), max(a.Y(), b.Y())},
			Color: r.Color,
		})
	}
	return nil
}

// GizmoStage copies the debug lines of the last step.
type GizmoStage struct{}

func (*GizmoStage) Name() string { return "gizmos" }

func (*GizmoStage) Access() Access {
	return Access{Reads: []Resource{SnapshotCamera}, Writes: []Resource{SnapshotGizmos}}
}

func (*GizmoStage) Extract(ctx *Context) error {
	src := ctx.World.Gizmos().Vertices
	out := make([]snapshot.GizmoVertex, len(src))
	for i, v := range src {
		out[i] = snapshot.GizmoVertex{Position: v.Position, Color: v.Color}
	}
	ctx.Snapshot.Gizmos.Vertices = out
	return nil
}
