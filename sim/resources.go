package sim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
	"github.com/plus3/framecore/terrain"
)

// Clock tracks simulation time.
type Clock struct {
	SimTime float32
	Steps   uint64
}

// TimeOfDay indexes the day/night tracks. Value advances by Rate per second and wraps at the
// end of the tracks.
type TimeOfDay struct {
	Value float32
	Rate  float32
}

// Lighting is the day/night state at one time of day. Keyframes of the cycle use it too.
type Lighting struct {
	SunDir          mgl32.Vec3
	SunColor        mgl32.Vec3
	FogColor        mgl32.Vec3
	FogDistance     float32
	FogNearFraction float32
}

// DayNightCycle samples lighting from per-channel tracks. Sampling only happens after MarkDirty.
type DayNightCycle struct {
	SunDir          *animation.Track[mgl32.Vec3]
	SunColor        *animation.Track[mgl32.Vec3]
	FogColor        *animation.Track[mgl32.Vec3]
	FogDistance     *animation.Track[float32]
	FogNearFraction *animation.Track[float32]

	// Current holds the last sampled lighting.
	Current Lighting

	dirty bool
}

// NewDayNightCycle inserts one keyframe per entry, starting dirty so the first step samples.
func NewDayNightCycle(keys []Lighting) DayNightCycle {
	d := DayNightCycle{
		SunDir:          animation.NewVec3Track(),
		SunColor:        animation.NewVec3Track(),
		FogColor:        animation.NewVec3Track(),
		FogDistance:     animation.NewFloatTrack(),
		FogNearFraction: animation.NewFloatTrack(),
		dirty:           true,
	}
	for i, k := range keys {
		frame := uint32(i)
		d.SunDir.Insert(frame, k.SunDir)
		d.SunColor.Insert(frame, k.SunColor)
		d.FogColor.Insert(frame, k.FogColor)
		d.FogDistance.Insert(frame, k.FogDistance)
		d.FogNearFraction.Insert(frame, k.FogNearFraction)
	}
	return d
}

// MarkDirty requests a resample on the next check.
func (d *DayNightCycle) MarkDirty() {
	d.dirty = true
}

// ConsumeIfDirty runs fn and clears the flag if it was set.
func (d *DayNightCycle) ConsumeIfDirty(fn func()) bool {
	if !d.dirty {
		return false
	}
	fn()
	d.dirty = false
	return true
}

// Sample evaluates every track at tod, wrapping around the cycle.
func (d *DayNightCycle) Sample(tod float32) Lighting {
	if d.SunDir == nil {
		return Lighting{}
	}
	return Lighting{
		SunDir:          d.SunDir.SampleSubFrame(tod, true),
		SunColor:        d.SunColor.SampleSubFrame(tod, true),
		FogColor:        d.FogColor.SampleSubFrame(tod, true),
		FogDistance:     d.FogDistance.SampleSubFrame(tod, true),
		FogNearFraction: d.FogNearFraction.SampleSubFrame(tod, true),
	}
}

// Viewport is the size of the render target in pixels.
type Viewport struct {
	Width, Height int
}

// Aspect returns width over height, guarding against a zero height.
func (v Viewport) Aspect() float32 {
	return float32(v.Width) / float32(max(v.Height, 1))
}

// UIRect is a rectangle requested by gameplay code. Size may be negative.
type UIRect struct {
	Pos   [2]int32
	Size  [2]int32
	Color mgl32.Vec4
}

// UI holds the rectangles to draw this frame.
type UI struct {
	Rects []UIRect
}

// GizmoVertex is one end of a debug line.
type GizmoVertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec4
}

// Gizmos collects debug lines. It is cleared at the start of every step.
type Gizmos struct {
	Vertices []GizmoVertex
	// ChunkBounds draws the bounds of every visible terrain chunk.
	ChunkBounds bool
}

// Line adds a line segment.
func (g *Gizmos) Line(a, b mgl32.Vec3, color mgl32.Vec4) {
	g.Vertices = append(g.Vertices, GizmoVertex{a, color}, GizmoVertex{b, color})
}

// Box adds the twelve edges of a bounding box.
func (g *Gizmos) Box(box mathx.BoundingBox, color mgl32.Vec4) {
	var c [8]mgl32.Vec3
	for i := range c {
		c[i] = box.Min
		if i&1 != 0 {
			c[i][0] = box.Max[0]
		}
		if i&2 != 0 {
			c[i][1] = box.Max[1]
		}
		if i&4 != 0 {
			c[i][2] = box.Max[2]
		}
	}
	for _, e := range [12][2]int{
		{0, 1}, {2, 3}, {4, 5}, {6, 7},
		{0, 2}, {1, 3}, {4, 6}, {5, 7},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	} {
		g.Line(c[e[0]], c[e[1]], color)
	}
}

// Terrain is the static terrain of the level. It may be nil when no level is loaded.
type Terrain struct {
	Terrain *terrain.Terrain
	// Highlight marks one chunk, usually the one under the cursor.
	Highlight    culling.ChunkCoord
	HasHighlight bool
}

// VisibleChunks is the output of the cull system for the current step.
type VisibleChunks struct {
	Chunks []culling.ChunkCoord
	Stats  culling.Stats
	// Total sums Stats over every step since the world was created.
	Total culling.Stats
}

// Motions gives systems access to the motion library.
type Motions struct {
	Sequencer *sequencer.Sequencer
}
