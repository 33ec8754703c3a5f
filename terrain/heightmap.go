package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrHeightMapSize = errors.New("terrain: elevation count does not match height map size")

// HeightMap stores one elevation per node. Width and Height count nodes, not cells.
type HeightMap struct {
	Width, Height int32
	CellSize      float32
	Elevations    []float32
}

func NewHeightMap(width, height int32, cellSize float32, elevations []float32) (*HeightMap, error) {
	if width <= 0 || height <= 0 || int(width)*int(height) != len(elevations) {
		return nil, fmt.Errorf("%w: %d elevations for %dx%d nodes", ErrHeightMapSize, len(elevations), width, height)
	}
	return &HeightMap{Width: width, Height: height, CellSize: cellSize, Elevations: elevations}, nil
}

// NodeElevation returns the elevation of a node. Coordinates outside the map clamp to its edge,
// which leaves the last cell of each row flat.
func (h *HeightMap) NodeElevation(x, y int32) float32 {
	x = min(max(x, 0), h.Width-1)
	y = min(max(y, 0), h.Height-1)
	return h.Elevations[int(y)*int(h.Width)+int(x)]
}

// NodeWorldPosition returns the world position of a node.
func (h *HeightMap) NodeWorldPosition(x, y int32) mgl32.Vec3 {
	return mgl32.Vec3{float32(x) * h.CellSize, float32(y) * h.CellSize, h.NodeElevation(x, y)}
}

// PositionAndNormal samples the bilinear surface at a world x/y position.
func (h *HeightMap) PositionAndNormal(worldX, worldY float32) (mgl32.Vec3, mgl32.Vec3) {
	lx, ly := worldX/h.CellSize, worldY/h.CellSize
	nx, ny := int32(math.Floor(float64(lx))), int32(math.Floor(float64(ly)))
	tx, ty := lx-float32(nx), ly-float32(ny)

	h00 := h.NodeElevation(nx, ny)
	h10 := h.NodeElevation(nx+1, ny)
	h01 := h.NodeElevation(nx, ny+1)
	h11 := h.NodeElevation(nx+1, ny+1)

	hx0 := h00*(1-tx) + h10*tx
	hx1 := h01*(1-tx) + h11*tx
	elevation := hx0*(1-ty) + hx1*ty

	dx := ((h10-h00)*(1-ty) + (h11-h01)*ty) / h.CellSize
	dy := ((h01-h00)*(1-tx) + (h11-h10)*tx) / h.CellSize

	return mgl32.Vec3{worldX, worldY, elevation}, mgl32.Vec3{-dx, -dy, 1}.Normalize()
}
