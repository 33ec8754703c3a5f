// Package snapshot defines the self-contained description of one frame handed from the
// simulation to the renderer.
package snapshot

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/arena"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/mathx"
)

// Camera the scene is rendered from.
type Camera struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Near     float32
	Far      float32
	ProjView mgl32.Mat4
	Frustum  mathx.Frustum
}

// Environment holds lighting and fog for the frame.
type Environment struct {
	// SimTime is the elapsed simulation time in seconds.
	SimTime float32

	SunDir       mgl32.Vec3
	SunColor     mgl32.Vec3
	AmbientColor mgl32.Vec3

	FogColor    mgl32.Vec3
	FogDistance float32
	// FogNearFraction is where fog starts, as a fraction of FogDistance.
	FogNearFraction float32
}

// Terrain chunk flag bits. The low four bits mark neighbours drawn at a coarser level of
// detail, in NeighbourOffsets order, so the renderer can stitch seams.
const (
	ChunkFlagNeighbourNorth uint32 = 1 << iota
	ChunkFlagNeighbourWest
	ChunkFlagNeighbourSouth
	ChunkFlagNeighbourEast

	// Bits 8 and 9 hold the StrataSide of a strata instance.
	strataSideShift = 8
	strataSideMask  = 0b11

	ChunkFlagHighlighted uint32 = 1 << 15
)

// NeighbourOffsets lists the chunk offsets matching the neighbour flag bits.
var NeighbourOffsets = [4]culling.ChunkCoord{{X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1}, {X: 1, Y: 0}}

// StrataSide is the terrain edge a strata instance closes off.
type StrataSide uint32

const (
	StrataSouth StrataSide = iota
	StrataWest
	StrataNorth
	StrataEast
)

// StrataFlags encodes side into chunk flags.
func StrataFlags(side StrataSide) uint32 {
	return uint32(side) << strataSideShift
}

// TerrainChunk is one chunk to draw.
type TerrainChunk struct {
	Coord culling.ChunkCoord
	LOD   uint32
	Flags uint32
}

// StrataSide decodes the side from a strata instance's flags.
func (c TerrainChunk) StrataSide() StrataSide {
	return StrataSide((c.Flags >> strataSideShift) & strataSideMask)
}

// Terrain lists the visible chunks sorted by level of detail, and the strata instances on the
// edge of the map sorted by side.
type Terrain struct {
	Chunks          []TerrainChunk
	Strata          []TerrainChunk
	StrataSideCount [4]uint32
}

// ModelToRender is one model instance. Bones holds the instance's own copy of its bone palette.
type ModelToRender struct {
	Model       arena.Handle[assets.Model]
	Transform   mgl32.Mat4
	Highlighted bool
	Bones       []mgl32.Mat4
}

// Models lists the model instances to draw.
type Models struct {
	// ToPrepare lists models that have not been drawn before and need GPU resources.
	ToPrepare []arena.Handle[assets.Model]
	Models    []ModelToRender
}

// UIRect is a filled rectangle in screen pixels.
type UIRect struct {
	Min, Max mgl32.Vec2
	Color    mgl32.Vec4
}

// UI holds screen space geometry.
type UI struct {
	ProjView mgl32.Mat4
	Rects    []UIRect
}

// GizmoVertex is a debug line vertex.
type GizmoVertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec4
}

// Gizmos holds debug lines as vertex pairs.
type Gizmos struct {
	Vertices []GizmoVertex
}

// RenderSnapshot is everything the renderer needs for one frame. It never references
// simulation state; every slice is owned by the snapshot.
type RenderSnapshot struct {
	Frame       uint64
	Camera      Camera
	Environment Environment
	Terrain     Terrain
	Models      Models
	UI          UI
	Gizmos      Gizmos
}

// Clone returns a deep copy.
func (s *RenderSnapshot) Clone() *RenderSnapshot {
	c := *s
	c.Terrain.Chunks = slices.Clone(s.Terrain.Chunks)
	c.Terrain.Strata = slices.Clone(s.Terrain.Strata)
	c.Models.ToPrepare = slices.Clone(s.Models.ToPrepare)
	c.Models.Models = slices.Clone(s.Models.Models)
	for i := range c.Models.Models {
		c.Models.Models[i].Bones = slices.Clone(c.Models.Models[i].Bones)
	}
	c.UI.Rects = slices.Clone(s.UI.Rects)
	c.Gizmos.Vertices = slices.Clone(s.Gizmos.Vertices)
	return &c
}
