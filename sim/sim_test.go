package sim_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
	"github.com/plus3/framecore/sim"
	"github.com/plus3/framecore/terrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	standing = sequencer.StateOf("standing")
	walking  = sequencer.StateOf("walking")
)

func testTerrain(t *testing.T) *terrain.Terrain {
	t.Helper()
	const n = 16
	elevations := make([]float32, 0, n*n)
	for range n {
		for x := range n {
			elevations = append(elevations, float32(x)*0.1)
		}
	}
	hm, err := terrain.NewHeightMap(n, n, 1, elevations)
	require.NoError(t, err)
	terr, err := terrain.New(hm)
	require.NoError(t, err)
	return terr
}

// overhead looks almost straight down on the terrain from (4, 4, 50).
var overhead = sim.Camera{
	Position: mgl32.Vec3{4, 4, 50},
	Pitch:    -89,
	FovY:     60,
	Near:     0.1,
	Far:      100,
}

func testSequencer(t *testing.T) (*sequencer.Sequencer, *animation.Skeleton) {
	t.Helper()
	skel, err := animation.NewSkeleton([]animation.Bone{
		{ID: 0, Name: "root", Parent: animation.NoParent, Rest: mathx.Identity()},
		{ID: 1, Name: "cog", Parent: 0, Rest: mathx.Identity()},
	})
	require.NoError(t, err)

	walk := animation.Motion{Name: "walk", FrameCount: 3, BaseTicksPerFrame: 10, FromState: uint32(standing), ToState: uint32(walking)}
	for i := range 3 {
		walk.KeyFrames = append(walk.KeyFrames, animation.KeyFrame{
			Frame:          uint32(i),
			LinearVelocity: mgl32.Vec3{float32(i), 0, 0},
		})
	}

	s := sequencer.New()
	s.AddSequence("walk", standing, walking, s.NewMotionInfo(s.AddMotion(walk)))
	return s, skel
}

func TestClockAdvances(t *testing.T) {
	w := sim.NewWorld()
	w.Step(0.5)
	w.Step(0.5)

	assert.InDelta(t, 1, w.Clock().SimTime, 1e-6)
	assert.Equal(t, uint64(2), w.Clock().Steps)
}

func TestActiveCameraIsComputed(t *testing.T) {
	w := sim.NewWorld(sim.WithViewport(800, 400))

	_, ok := w.ActiveCamera()
	assert.False(t, ok)
	_, err := w.PickRay(0, 0)
	assert.ErrorIs(t, err, sim.ErrNoCamera)

	w.SpawnCamera(sim.Camera{FovY: 60, Near: 1, Far: 10, Position: mgl32.Vec3{0, 0, 5}}, false)
	_, ok = w.ActiveCamera()
	assert.False(t, ok, "inactive cameras are ignored")

	id := w.SpawnCamera(overhead, true)
	require.True(t, w.Storage.Alive(id))

	cam, ok := w.ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, overhead.Position, cam.Position)
	assert.InDelta(t, -1, cam.Forward.Z(), 1e-3)

	ecs.ReadComponent[sim.Camera](w.Storage, id).Position = mgl32.Vec3{1, 2, 3}
	w.Step(0)
	cam, _ = w.ActiveCamera()
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, cam.Position)
}

func TestCameraForwardIsZUp(t *testing.T) {
	forward := sim.Camera{Yaw: 90}.Forward()
	assert.InDelta(t, 0, forward.X(), 1e-6)
	assert.InDelta(t, 1, forward.Y(), 1e-6)

	forward = sim.Camera{Pitch: 120}.Forward()
	assert.Less(t, forward.Z(), float32(1))
	assert.Greater(t, forward.Z(), float32(0.99))
}

func TestDayNightResamplesAndPullsInFarPlane(t *testing.T) {
	keys := []sim.Lighting{
		{FogDistance: 100, SunColor: mgl32.Vec3{1, 1, 1}},
		{FogDistance: 300},
		{FogDistance: 100, SunColor: mgl32.Vec3{1, 1, 1}},
	}
	w := sim.NewWorld(sim.WithDayNight(keys, 1))
	id := w.SpawnCamera(overhead, true)

	w.Step(0.5)
	assert.InDelta(t, 200, w.Lighting().FogDistance, 1e-3)
	assert.InDelta(t, 0.5, w.Lighting().SunColor.X(), 1e-3)
	assert.InDelta(t, 200, ecs.ReadComponent[sim.Camera](w.Storage, id).Far, 1e-3)

	cam, _ := w.ActiveCamera()
	assert.InDelta(t, 200, cam.Far, 1e-3)

	// 2.5 wraps to 0.5 on a two unit cycle.
	w.Step(2)
	assert.InDelta(t, 200, w.Lighting().FogDistance, 1e-3)

	w.SetTimeOfDay(1)
	w.Step(0)
	assert.InDelta(t, 300, w.Lighting().FogDistance, 1e-3)
}

func TestCullAndPick(t *testing.T) {
	w := sim.NewWorld(sim.WithTerrain(testTerrain(t)))
	w.SpawnCamera(overhead, true)
	w.Step(0)

	visible := w.VisibleChunks()
	assert.Len(t, visible.Chunks, 4)
	assert.Equal(t, 4, visible.Stats.Visible)

	w.Step(0)
	assert.Equal(t, 4, visible.Stats.Visible)
	assert.Equal(t, 8, visible.Total.Visible)
	assert.Equal(t, 2*visible.Stats.Tested, visible.Total.Tested)

	ray, err := w.PickRay(0, 0)
	require.NoError(t, err)
	assert.Less(t, ray.Direction.Z(), float32(-0.99))

	chunk, ok := w.PickChunk(0, 0)
	require.True(t, ok)
	assert.Equal(t, culling.ChunkCoord{X: 0, Y: 0}, chunk)

	_, ok = w.PickChunk(0, 1)
	assert.False(t, ok, "the top of the screen looks past the terrain")
}

func TestGizmosDrawChunkBoundsAndHighlight(t *testing.T) {
	w := sim.NewWorld(sim.WithTerrain(testTerrain(t)))
	w.SpawnCamera(overhead, true)

	w.Step(0)
	assert.Empty(t, w.Gizmos().Vertices)

	w.Gizmos().ChunkBounds = true
	w.Highlight(culling.ChunkCoord{X: 1, Y: 1}, true)
	w.Step(0)
	assert.Len(t, w.Gizmos().Vertices, 5*24)

	w.Highlight(culling.ChunkCoord{}, false)
	w.Gizmos().ChunkBounds = false
	w.Step(0)
	assert.Empty(t, w.Gizmos().Vertices)
}

func TestMotionMovesTheTransform(t *testing.T) {
	seq, skel := testSequencer(t)
	w := sim.NewWorld(sim.WithSequencer(seq))

	hero, err := w.Models.Add(assets.Model{Name: "hero"})
	require.NoError(t, err)

	id := w.SpawnAnimated(hero, mathx.Identity(), skel, standing)
	require.NoError(t, w.Request(id, sequencer.NewRequest("walk")))

	w.Step(0.01)
	w.Step(0.01)

	transform := ecs.ReadComponent[mathx.Transform](w.Storage, id)
	require.NotNil(t, transform)
	assert.InDelta(t, 1, transform.Translation.X(), 1e-4)

	animated := ecs.ReadComponent[sim.Animated](w.Storage, id)
	assert.Len(t, animated.Pose.Bones, 2)
	assert.Equal(t, walking, animated.Controller.State())
}

func TestRootMotionFollowsOrientation(t *testing.T) {
	seq, skel := testSequencer(t)
	w := sim.NewWorld(sim.WithSequencer(seq))

	hero, err := w.Models.Add(assets.Model{Name: "hero"})
	require.NoError(t, err)

	turned := mathx.NewTransform(mgl32.Vec3{}, mgl32.QuatRotate(mgl32.DegToRad(90), sim.Up))
	id := w.SpawnAnimated(hero, turned, skel, standing)
	require.NoError(t, w.Request(id, sequencer.NewRequest("walk")))

	w.Step(0.01)
	w.Step(0.01)

	transform := ecs.ReadComponent[mathx.Transform](w.Storage, id)
	assert.InDelta(t, 0, transform.Translation.X(), 1e-4)
	assert.InDelta(t, 1, transform.Translation.Y(), 1e-4)
}

func TestRequestNeedsController(t *testing.T) {
	w := sim.NewWorld()
	h, err := w.Models.Add(assets.Model{Name: "crate"})
	require.NoError(t, err)

	id := w.SpawnModel(h, mathx.Identity())
	assert.ErrorIs(t, w.Request(id, sequencer.NewRequest("walk")), sim.ErrNotAnimated)
}

func TestSelectMovesTheEntity(t *testing.T) {
	w := sim.NewWorld()
	h, err := w.Models.Add(assets.Model{Name: "crate"})
	require.NoError(t, err)

	id := w.SpawnModel(h, mathx.Identity())
	selected := w.Select(id)
	assert.False(t, w.Storage.Alive(id))
	assert.NotNil(t, ecs.ReadComponent[sim.Selected](w.Storage, selected))

	back := w.Deselect(selected)
	assert.Nil(t, ecs.ReadComponent[sim.Selected](w.Storage, back))
	assert.Equal(t, h, ecs.ReadComponent[sim.ModelInstance](w.Storage, back).Model)
}

func TestUIRects(t *testing.T) {
	w := sim.NewWorld()
	w.AddRect([2]int32{10, 10}, [2]int32{-5, 20}, mgl32.Vec4{1, 0, 0, 1})
	require.Len(t, w.UI().Rects, 1)
	assert.Equal(t, [2]int32{-5, 20}, w.UI().Rects[0].Size)

	w.ClearUI()
	assert.Empty(t, w.UI().Rects)
}
