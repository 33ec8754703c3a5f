package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/mathx"
	"go.uber.org/zap"
)

// ClockSystem advances simulation time and the time of day.
type ClockSystem struct {
	Clock     ecs.Singleton[Clock]
	TimeOfDay ecs.Singleton[TimeOfDay]
	DayNight  ecs.Singleton[DayNightCycle]
}

func (s *ClockSystem) Execute(frame *ecs.UpdateFrame) {
	clock := s.Clock.Get()
	clock.SimTime += float32(frame.DeltaTime)
	clock.Steps++

	tod := s.TimeOfDay.Get()
	if tod.Rate == 0 || frame.DeltaTime == 0 {
		return
	}
	tod.Value += tod.Rate * float32(frame.DeltaTime)
	if cycle := s.DayNight.Get(); cycle.SunDir != nil {
		if last, ok := cycle.SunDir.LastFrame(); ok && last > 0 {
			tod.Value = float32(math.Mod(float64(tod.Value), float64(last)))
			if tod.Value < 0 {
				tod.Value += float32(last)
			}
		}
		cycle.MarkDirty()
	}
}

// DayNightSystem resamples lighting when the time of day changed and pulls the far plane of
// every camera in to the fog distance.
type DayNightSystem struct {
	TimeOfDay ecs.Singleton[TimeOfDay]
	DayNight  ecs.Singleton[DayNightCycle]
	Cameras   ecs.Query[struct{ *Camera }]
}

func (s *DayNightSystem) Execute(*ecs.UpdateFrame) {
	cycle := s.DayNight.Get()
	cycle.ConsumeIfDirty(func() {
		cycle.Current = cycle.Sample(s.TimeOfDay.Get().Value)
	})

	if far := cycle.Current.FogDistance; far > 0 {
		for _, c := range s.Cameras.Iter() {
			c.Camera.Far = max(far, c.Camera.Near+1)
		}
	}
}

// CameraSystem recomputes matrices and frustums of every camera.
type CameraSystem struct {
	Viewport ecs.Singleton[Viewport]
	Cameras  ecs.Query[struct {
		*Camera
		*ComputedCamera
	}]
}

func (s *CameraSystem) Execute(*ecs.UpdateFrame) {
	aspect := s.Viewport.Get().Aspect()
	for _, c := range s.Cameras.Iter() {
		*c.ComputedCamera = c.Camera.Compute(aspect)
	}
}

// MotionSystem advances every motion controller and writes the composed pose. Root motion moves
// the entity's transform in its own frame when it has one.
type MotionSystem struct {
	Motions  ecs.Singleton[Motions]
	Animated ecs.Query[struct {
		*Animated
		Transform *mathx.Transform `ecs:"optional"`
	}]

	Logger *zap.Logger
}

func (s *MotionSystem) Execute(frame *ecs.UpdateFrame) {
	lib := s.Motions.Get().Sequencer
	if lib == nil {
		return
	}
	dt := float32(frame.DeltaTime)

	for id, a := range s.Animated.Iter() {
		if a.Animated.Controller == nil || a.Animated.Skeleton == nil {
			continue
		}
		local, root := a.Animated.Controller.Update(dt, lib, a.Animated.Skeleton)
		pose, err := a.Animated.Skeleton.Compose(local)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("pose compose failed", zap.Uint64("entity", uint64(id)), zap.Error(err))
			}
			continue
		}
		a.Animated.Pose = pose

		if a.Transform != nil && root != (mgl32.Vec3{}) {
			rotation := mathx.NormalizeOrIdentity(a.Transform.Rotation)
			a.Transform.Translation = a.Transform.Translation.Add(rotation.Rotate(root))
		}
	}
}

// CullSystem recomputes the visible terrain chunks from the active camera.
type CullSystem struct {
	Terrain ecs.Singleton[Terrain]
	Visible ecs.Singleton[VisibleChunks]
	Cameras ecs.Query[struct {
		*ComputedCamera
		*ActiveCamera
	}]
}

func (s *CullSystem) Execute(*ecs.UpdateFrame) {
	visible := s.Visible.Get()
	visible.Chunks = visible.Chunks[:0]
	visible.Stats = culling.Stats{}

	terr := s.Terrain.Get().Terrain
	if terr == nil {
		return
	}
	for _, c := range s.Cameras.Iter() {
		visible.Chunks, visible.Stats = terr.QuadTree.Visible(&c.ComputedCamera.Frustum, visible.Chunks)
		visible.Total.Add(visible.Stats)
		return
	}
}

var (
	chunkGizmoColor     = mgl32.Vec4{0.2, 0.8, 0.2, 1}
	highlightGizmoColor = mgl32.Vec4{1, 0.8, 0.1, 1}
)

// GizmoSystem clears last step's debug lines and draws chunk bounds when enabled. Systems
// registered after it add their own lines.
type GizmoSystem struct {
	Gizmos  ecs.Singleton[Gizmos]
	Terrain ecs.Singleton[Terrain]
	Visible ecs.Singleton[VisibleChunks]
}

func (s *GizmoSystem) Execute(*ecs.UpdateFrame) {
	gizmos := s.Gizmos.Get()
	gizmos.Vertices = gizmos.Vertices[:0]

	t := s.Terrain.Get()
	if t.Terrain == nil {
		return
	}
	if gizmos.ChunkBounds {
		for _, c := range s.Visible.Get().Chunks {
			if box, ok := t.Terrain.ChunkBounds(c); ok {
				gizmos.Box(box, chunkGizmoColor)
			}
		}
	}
	if t.HasHighlight {
		if box, ok := t.Terrain.ChunkBounds(t.Highlight); ok {
			gizmos.Box(box, highlightGizmoColor)
		}
	}
}
