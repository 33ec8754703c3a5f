// Package terrain divides a height map into fixed size chunks, bounds them with a quad-tree and
// picks a level of detail per chunk.
package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/mathx"
)

const (
	// LODCount is the number of detail levels.
	LODCount = 4
	// LODMax is the coarsest downsampling level.
	LODMax = LODCount - 1
	// CellsPerChunk is the number of cells along a chunk edge.
	CellsPerChunk = 1 << LODMax
	// NodesPerChunk is the number of nodes along a chunk edge.
	NodesPerChunk = CellsPerChunk + 1
)

// Terrain is the static chunked terrain of a level.
type Terrain struct {
	HeightMap *HeightMap
	ChunkDim  culling.ChunkCoord
	QuadTree  *culling.QuadTree
}

// New chunks the height map and builds the quad-tree over the chunk elevation ranges.
func New(hm *HeightMap) (*Terrain, error) {
	dim := culling.ChunkCoord{
		X: (hm.Width + CellsPerChunk - 1) / CellsPerChunk,
		Y: (hm.Height + CellsPerChunk - 1) / CellsPerChunk,
	}

	tree, err := culling.Build(dim, CellsPerChunk*hm.CellSize, chunkRanges(hm, dim))
	if err != nil {
		return nil, err
	}
	return &Terrain{HeightMap: hm, ChunkDim: dim, QuadTree: tree}, nil
}

func chunkRanges(hm *HeightMap, dim culling.ChunkCoord) []culling.MinMax {
	ranges := make([]culling.MinMax, 0, int(dim.X)*int(dim.Y))
	for cy := range dim.Y {
		for cx := range dim.X {
			lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
			for y := cy * CellsPerChunk; y <= (cy+1)*CellsPerChunk; y++ {
				for x := cx * CellsPerChunk; x <= (cx+1)*CellsPerChunk; x++ {
					e := hm.NodeElevation(x, y)
					lo, hi = min(lo, e), max(hi, e)
				}
			}
			ranges = append(ranges, culling.MinMax{Min: lo, Max: hi})
		}
	}
	return ranges
}

// InBounds reports whether c lies on the chunk grid.
func (t *Terrain) InBounds(c culling.ChunkCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < t.ChunkDim.X && c.Y < t.ChunkDim.Y
}

// ChunkBounds returns the bounding box of a chunk.
func (t *Terrain) ChunkBounds(c culling.ChunkCoord) (mathx.BoundingBox, bool) {
	return t.QuadTree.ChunkBounds(c)
}

// ChunkLOD returns the detail level of a chunk seen from a camera.
func (t *Terrain) ChunkLOD(c culling.ChunkCoord, position, forward mgl32.Vec3, far float32) (uint32, bool) {
	bounds, ok := t.ChunkBounds(c)
	if !ok {
		return 0, false
	}
	return CalculateLOD(position, forward, far, bounds.Center()), true
}

// CalculateLOD maps the distance of center along the camera's forward axis onto the detail
// levels, spreading them evenly up to the far plane. The coarsest level is reserved.
func CalculateLOD(position, forward mgl32.Vec3, far float32, center mgl32.Vec3) uint32 {
	far = max(far, 1e-6)
	step := float32(LODMax) / far
	distance := max(center.Sub(position).Dot(forward), 0)
	lod := int(math.Floor(float64(distance * step)))
	return uint32(min(max(lod, 0), LODMax-1))
}
