package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/snapshot"
	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	projection := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	pv := projection.Mul4(view)

	x, y, ok := project(pv, mgl32.Vec3{0, 0, -10}, 200, 100)
	assert.True(t, ok)
	assert.InDelta(t, 100, x, 1e-3)
	assert.InDelta(t, 50, y, 1e-3)

	// Up in the world is up on screen, which is a smaller y.
	_, y, ok = project(pv, mgl32.Vec3{0, 5, -10}, 200, 100)
	assert.True(t, ok)
	assert.Less(t, y, float32(50))

	_, _, ok = project(pv, mgl32.Vec3{0, 0, 10}, 200, 100)
	assert.False(t, ok, "behind the camera")
}

func TestCursorNDC(t *testing.T) {
	x, y := cursorNDC(0, 0, 200, 100)
	assert.Equal(t, float32(-1), x)
	assert.Equal(t, float32(1), y)

	x, y = cursorNDC(100, 50, 200, 100)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestChunkColor(t *testing.T) {
	assert.Equal(t, lodColors[2], chunkColor(snapshot.TerrainChunk{LOD: 2}))
	assert.Equal(t, lodColors[3], chunkColor(snapshot.TerrainChunk{LOD: 9}))
	assert.Equal(t, seamColor, chunkColor(snapshot.TerrainChunk{Flags: snapshot.ChunkFlagNeighbourEast}))
	assert.Equal(t, highlightColor, chunkColor(snapshot.TerrainChunk{Flags: snapshot.ChunkFlagHighlighted | snapshot.ChunkFlagNeighbourEast}))
}

func TestToRGBAClamps(t *testing.T) {
	c := toRGBA(mgl32.Vec4{2, -1, 0.5, 1})
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(127), c.B)
	assert.Equal(t, uint8(255), c.A)
}
