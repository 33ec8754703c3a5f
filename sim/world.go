package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/arena"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
	"github.com/plus3/framecore/terrain"
	"go.uber.org/zap"
)

var (
	ErrNotAnimated = errors.New("sim: entity has no motion controller")
	ErrNoCamera    = errors.New("sim: no active camera")
)

// World owns the entity storage, the systems that step it and the read-only asset libraries
// the systems and extraction share.
type World struct {
	Registry  *ecs.ComponentRegistry
	Storage   *ecs.Storage
	Scheduler *ecs.Scheduler
	Sequencer *sequencer.Sequencer
	Models    *assets.Models

	clock    *ecs.Singleton[Clock]
	tod      *ecs.Singleton[TimeOfDay]
	cycle    *ecs.Singleton[DayNightCycle]
	viewport *ecs.Singleton[Viewport]
	terrain  *ecs.Singleton[Terrain]
	visible  *ecs.Singleton[VisibleChunks]
	ui       *ecs.Singleton[UI]
	gizmos   *ecs.Singleton[Gizmos]

	cameras *ecs.View[struct {
		*ComputedCamera
		*ActiveCamera
	}]

	logger *zap.Logger
}

type options struct {
	logger        *zap.Logger
	slowThreshold time.Duration
	sequencer     *sequencer.Sequencer
	models        *assets.Models
	terrain       *terrain.Terrain
	dayNight      []Lighting
	timeRate      float32
	viewport      Viewport
	systems       []ecs.System
}

// Option configures a World.
type Option func(*options)

// WithLogger sets the logger used by the world and its scheduler.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSlowSystemThreshold forwards to the scheduler.
func WithSlowSystemThreshold(d time.Duration) Option {
	return func(o *options) {
		o.slowThreshold = d
	}
}

// WithSequencer sets the motion library. A world without one still steps, with every
// controller held still.
func WithSequencer(s *sequencer.Sequencer) Option {
	return func(o *options) {
		o.sequencer = s
	}
}

// WithModels sets the model store.
func WithModels(m *assets.Models) Option {
	return func(o *options) {
		o.models = m
	}
}

// WithTerrain loads the level terrain.
func WithTerrain(t *terrain.Terrain) Option {
	return func(o *options) {
		o.terrain = t
	}
}

// WithDayNight sets the day/night keyframes, one per time-of-day unit, and the rate at which
// the time of day advances per second.
func WithDayNight(keys []Lighting, rate float32) Option {
	return func(o *options) {
		o.dayNight = keys
		o.timeRate = rate
	}
}

// WithViewport sets the initial render target size.
func WithViewport(width, height int) Option {
	return func(o *options) {
		o.viewport = Viewport{Width: width, Height: height}
	}
}

// WithSystems registers extra systems after the built-in ones.
func WithSystems(systems ...ecs.System) Option {
	return func(o *options) {
		o.systems = append(o.systems, systems...)
	}
}

// RegisterComponents registers every component type the world spawns.
func RegisterComponents(r *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Camera](r)
	ecs.RegisterComponent[ComputedCamera](r)
	ecs.RegisterComponent[ActiveCamera](r)
	ecs.RegisterComponent[ModelInstance](r)
	ecs.RegisterComponent[Selected](r)
	ecs.RegisterComponent[Animated](r)
	ecs.RegisterComponent[mathx.Transform](r)
}

// NewWorld creates a world with its singletons and built-in systems.
func NewWorld(opts ...Option) *World {
	o := options{
		logger:   zap.NewNop(),
		viewport: Viewport{Width: 1280, Height: 720},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sequencer == nil {
		o.sequencer = sequencer.New(sequencer.WithLogger(o.logger))
	}
	if o.models == nil {
		o.models = assets.NewModels()
	}

	registry := ecs.NewComponentRegistry()
	RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	w := &World{
		Registry:  registry,
		Storage:   storage,
		Scheduler: ecs.NewScheduler(storage, ecs.WithSchedulerLogger(o.logger), ecs.WithSlowSystemThreshold(o.slowThreshold)),
		Sequencer: o.sequencer,
		Models:    o.models,
		logger:    o.logger,
	}

	w.clock = ecs.NewSingleton[Clock](storage)
	w.tod = ecs.NewSingleton(storage, TimeOfDay{Rate: o.timeRate})
	w.cycle = ecs.NewSingleton(storage, NewDayNightCycle(o.dayNight))
	w.viewport = ecs.NewSingleton(storage, o.viewport)
	w.terrain = ecs.NewSingleton(storage, Terrain{Terrain: o.terrain})
	w.visible = ecs.NewSingleton[VisibleChunks](storage)
	w.ui = ecs.NewSingleton[UI](storage)
	w.gizmos = ecs.NewSingleton[Gizmos](storage)
	ecs.NewSingleton(storage, Motions{Sequencer: o.sequencer})

	w.cameras = ecs.NewView[struct {
		*ComputedCamera
		*ActiveCamera
	}](storage)

	w.Scheduler.Register(&ClockSystem{})
	w.Scheduler.Register(&DayNightSystem{})
	w.Scheduler.Register(&CameraSystem{})
	w.Scheduler.Register(&MotionSystem{Logger: o.logger})
	w.Scheduler.Register(&CullSystem{})
	w.Scheduler.Register(&GizmoSystem{})
	for _, s := range o.systems {
		w.Scheduler.Register(s)
	}
	return w
}

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger {
	return w.logger
}

// Step runs every system once and applies their queued commands.
func (w *World) Step(dt float64) {
	w.Scheduler.Once(dt)
}

// SpawnCamera adds a camera. Its computed matrices are filled in immediately so the camera can
// be extracted before the first step.
func (w *World) SpawnCamera(cam Camera, active bool) ecs.EntityId {
	computed := cam.Compute(w.viewport.Get().Aspect())
	if active {
		return w.Storage.Spawn(cam, computed, ActiveCamera{})
	}
	return w.Storage.Spawn(cam, computed)
}

// SpawnModel places an instance of a model.
func (w *World) SpawnModel(model arena.Handle[assets.Model], transform mathx.Transform) ecs.EntityId {
	return w.Storage.Spawn(ModelInstance{Model: model}, transform)
}

// SpawnAnimated places an instance of a model driven by a motion controller resting in state.
func (w *World) SpawnAnimated(model arena.Handle[assets.Model], transform mathx.Transform, skel *animation.Skeleton, state sequencer.State) ecs.EntityId {
	return w.Storage.Spawn(
		ModelInstance{Model: model},
		transform,
		Animated{
			Controller: sequencer.NewController(state),
			Skeleton:   skel,
			Pose:       skel.ToPose(),
		},
	)
}

// Request queues a motion sequence on an animated entity.
func (w *World) Request(id ecs.EntityId, req sequencer.Request) error {
	a := ecs.ReadComponent[Animated](w.Storage, id)
	if a == nil || a.Controller == nil {
		return fmt.Errorf("%w: %d", ErrNotAnimated, id)
	}
	return w.Sequencer.Request(a.Controller, req)
}

// Select tags a model instance as highlighted. The entity moves archetype, so the returned id
// replaces the old one.
func (w *World) Select(id ecs.EntityId) ecs.EntityId {
	return w.Storage.AddComponent(id, Selected{})
}

// Deselect removes the highlight tag and returns the entity's new id.
func (w *World) Deselect(id ecs.EntityId) ecs.EntityId {
	return w.Storage.RemoveComponent(id, typeOfSelected)
}

// Resize updates the viewport used for the camera aspect ratio.
func (w *World) Resize(width, height int) {
	*w.viewport.Get() = Viewport{Width: width, Height: height}
}

// Viewport returns the current render target size.
func (w *World) Viewport() Viewport {
	return *w.viewport.Get()
}

// Clock returns the simulation clock.
func (w *World) Clock() Clock {
	return *w.clock.Get()
}

// SetTimeOfDay jumps the day/night cycle to tod.
func (w *World) SetTimeOfDay(tod float32) {
	w.tod.Get().Value = tod
	w.cycle.Get().MarkDirty()
}

// TimeOfDay returns the current time of day.
func (w *World) TimeOfDay() TimeOfDay {
	return *w.tod.Get()
}

// DayNight returns the day/night tracks.
func (w *World) DayNight() *DayNightCycle {
	return w.cycle.Get()
}

// Lighting returns the lighting sampled by the last step.
func (w *World) Lighting() Lighting {
	return w.cycle.Get().Current
}

// Terrain returns the level terrain resource.
func (w *World) Terrain() *Terrain {
	return w.terrain.Get()
}

// VisibleChunks returns the chunks the last step found visible.
func (w *World) VisibleChunks() *VisibleChunks {
	return w.visible.Get()
}

// UI returns the rectangles requested for this frame.
func (w *World) UI() *UI {
	return w.ui.Get()
}

// Gizmos returns the debug lines collected this step.
func (w *World) Gizmos() *Gizmos {
	return w.gizmos.Get()
}

// ActiveCamera returns the computed state of the first camera tagged ActiveCamera.
func (w *World) ActiveCamera() (*ComputedCamera, bool) {
	for _, c := range w.cameras.Iter() {
		return c.ComputedCamera, true
	}
	return nil, false
}

// PickRay returns the world ray through a point in normalized device coordinates.
func PickRay(camera ComputedCamera, ndcX, ndcY float32) mathx.Ray {
	return camera.PickRay(ndcX, ndcY)
}

// PickRay casts from the active camera.
func (w *World) PickRay(ndcX, ndcY float32) (mathx.Ray, error) {
	cam, ok := w.ActiveCamera()
	if !ok {
		return mathx.Ray{}, ErrNoCamera
	}
	return PickRay(*cam, ndcX, ndcY), nil
}

// PickChunk returns the terrain chunk under a point in normalized device coordinates, looking no
// further than the camera's far plane.
func (w *World) PickChunk(ndcX, ndcY float32) (culling.ChunkCoord, bool) {
	cam, ok := w.ActiveCamera()
	terr := w.terrain.Get().Terrain
	if !ok || terr == nil {
		return culling.ChunkCoord{}, false
	}
	hit, ok := terr.QuadTree.RayCast(PickRay(*cam, ndcX, ndcY), cam.Far)
	return hit.Chunk, ok
}

// Highlight marks a chunk for the renderer, or clears the mark when ok is false.
func (w *World) Highlight(c culling.ChunkCoord, ok bool) {
	t := w.terrain.Get()
	t.Highlight, t.HasHighlight = c, ok
}

// AddRect requests a UI rectangle for the next frame. Rects persist until ClearUI.
func (w *World) AddRect(pos, size [2]int32, color mgl32.Vec4) {
	ui := w.ui.Get()
	ui.Rects = append(ui.Rects, UIRect{Pos: pos, Size: size, Color: color})
}

// ClearUI drops every requested rectangle.
func (w *World) ClearUI() {
	ui := w.ui.Get()
	ui.Rects = ui.Rects[:0]
}
