package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/plus3/framecore/debugui"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/sim"
)

const (
	moveSpeed = 40 // world units per second
	turnSpeed = 60 // degrees per second
)

// cameraControls moves the camera and picks the chunk under the cursor. Input is ignored
// while ImGui has focus.
type cameraControls struct {
	world  *sim.World
	camera ecs.EntityId
	imgui  *ecs.Singleton[debugui.ImguiInputState]
}

func (c *cameraControls) Update(dt float32) {
	w := c.world
	w.ClearUI()

	input := c.imgui.Get()
	if input == nil || !input.WantCaptureKeyboard {
		c.move(dt)
		if inpututil.IsKeyJustPressed(ebiten.KeyG) {
			w.Gizmos().ChunkBounds = !w.Gizmos().ChunkBounds
		}
	}

	mx, my := ebiten.CursorPosition()
	view := w.Viewport()
	if input != nil && input.WantCaptureMouse {
		return
	}

	ndcX, ndcY := cursorNDC(mx, my, view.Width, view.Height)
	chunk, ok := w.PickChunk(ndcX, ndcY)
	w.Highlight(chunk, ok)
	w.AddRect([2]int32{int32(mx) - 4, int32(my)}, [2]int32{9, 1}, mgl32.Vec4{1, 1, 1, 0.8})
	w.AddRect([2]int32{int32(mx), int32(my) - 4}, [2]int32{1, 9}, mgl32.Vec4{1, 1, 1, 0.8})
}

func (c *cameraControls) move(dt float32) {
	cam := ecs.ReadComponent[sim.Camera](c.world.Storage, c.camera)
	if cam == nil {
		return
	}

	yaw := float64(mgl32.DegToRad(cam.Yaw))
	forward := mgl32.Vec3{float32(math.Cos(yaw)), float32(math.Sin(yaw)), 0}
	right := mgl32.Vec3{forward.Y(), -forward.X(), 0}

	var move mgl32.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		move = move.Add(forward)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		move = move.Sub(forward)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		move = move.Add(right)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		move = move.Sub(right)
	}
	if ebiten.IsKeyPressed(ebiten.KeyPageUp) {
		move = move.Add(sim.Up)
	}
	if ebiten.IsKeyPressed(ebiten.KeyPageDown) {
		move = move.Sub(sim.Up)
	}
	if move.Len() > 0 {
		cam.Position = cam.Position.Add(move.Normalize().Mul(moveSpeed * dt))
	}

	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		cam.Yaw += turnSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		cam.Yaw -= turnSpeed * dt
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		cam.Pitch = min(cam.Pitch+turnSpeed*dt, 89)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		cam.Pitch = max(cam.Pitch-turnSpeed*dt, -89)
	}
}

// cursorNDC converts pixel coordinates, origin top left, to normalised device coordinates.
func cursorNDC(x, y, width, height int) (float32, float32) {
	return float32(x)/float32(max(width, 1))*2 - 1, 1 - float32(y)/float32(max(height, 1))*2
}
