package culling_test

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/mathx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatGrid(t *testing.T, w, h int32) *culling.QuadTree {
	t.Helper()
	leaves := make([]culling.MinMax, w*h)
	for i := range leaves {
		leaves[i] = culling.MinMax{Min: 0, Max: 1}
	}
	tree, err := culling.Build(culling.ChunkCoord{X: w, Y: h}, 10, leaves)
	require.NoError(t, err)
	return tree
}

// topDown looks straight down at (x, y) with an orthographic box of the given half size.
func topDown(x, y, half float32) mathx.Frustum {
	projection := mgl32.Ortho(-half, half, -half, half, 0.1, 200)
	view := mgl32.LookAtV(mgl32.Vec3{x, y, 100}, mgl32.Vec3{x, y, 0}, mgl32.Vec3{0, 1, 0})
	return mathx.NewViewProjection(projection, view).Frustum()
}

func sorted(coords []culling.ChunkCoord) []culling.ChunkCoord {
	slices.SortFunc(coords, func(a, b culling.ChunkCoord) int {
		if a.Y != b.Y {
			return int(a.Y - b.Y)
		}
		return int(a.X - b.X)
	})
	return coords
}

func TestBuild(t *testing.T) {
	tree := flatGrid(t, 4, 4)
	assert.Equal(t, 2, tree.MaxLevel)
	assert.Len(t, tree.Root.Children, 4)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, tree.Root.Bounds.Min)
	assert.Equal(t, mgl32.Vec3{40, 40, 1}, tree.Root.Bounds.Max)

	bounds, ok := tree.ChunkBounds(culling.ChunkCoord{X: 2, Y: 1})
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{20, 10, 0}, bounds.Min)

	_, ok = tree.ChunkBounds(culling.ChunkCoord{X: 4, Y: 0})
	assert.False(t, ok)

	t.Run("odd grid keeps every chunk once", func(t *testing.T) {
		tree := flatGrid(t, 3, 1)
		var none mathx.Frustum
		visible, _ := tree.Visible(&none, nil)
		assert.Equal(t, []culling.ChunkCoord{{0, 0}, {1, 0}, {2, 0}}, sorted(visible))
	})

	t.Run("errors", func(t *testing.T) {
		_, err := culling.Build(culling.ChunkCoord{}, 10, nil)
		assert.ErrorIs(t, err, culling.ErrEmptyGrid)

		_, err = culling.Build(culling.ChunkCoord{X: 2, Y: 2}, 10, make([]culling.MinMax, 3))
		assert.Error(t, err)
	})
}

func TestVisibleIntersectingDescends(t *testing.T) {
	tree := flatGrid(t, 4, 4)
	f := topDown(20, 20, 5)

	visible, stats := tree.Visible(&f, nil)
	assert.Equal(t, []culling.ChunkCoord{{1, 1}, {2, 1}, {1, 2}, {2, 2}}, sorted(visible))
	assert.Equal(t, 21, stats.Tested)
	assert.Equal(t, 12, stats.Rejected)
	assert.Equal(t, 4, stats.Visible)

	var total culling.Stats
	total.Add(stats)
	total.Add(stats)
	assert.Equal(t, culling.Stats{Tested: 42, Rejected: 24, Visible: 8}, total)
}

func TestVisibleInsideAcceptsWithoutDescending(t *testing.T) {
	tree := flatGrid(t, 4, 4)
	f := topDown(20, 20, 100)

	visible, stats := tree.Visible(&f, nil)
	assert.Len(t, visible, 16)
	assert.Equal(t, 1, stats.Tested)
	assert.Equal(t, 1, stats.Accepted)
}

func TestVisibleOutsidePrunes(t *testing.T) {
	tree := flatGrid(t, 4, 4)
	f := topDown(500, 500, 5)

	visible, stats := tree.Visible(&f, nil)
	assert.Empty(t, visible)
	assert.Equal(t, 1, stats.Tested)
	assert.Equal(t, 1, stats.Rejected)
}

func TestVisibleStraddlingOnePlane(t *testing.T) {
	tree := flatGrid(t, 4, 4)
	// Left plane at x = 25, everything else far away.
	f := topDown(125, 20, 100)
	require.Equal(t, mathx.Intersect, f.Classify(tree.Root.Bounds))

	visible, stats := tree.Visible(&f, nil)
	assert.Len(t, visible, 8)
	for _, c := range visible {
		assert.GreaterOrEqual(t, c.X, int32(2))
	}
	assert.Equal(t, 13, stats.Tested)
	assert.Equal(t, 2, stats.Rejected)
	assert.Equal(t, 4, stats.Accepted)
}

func TestDegenerateFrustumSeesEverything(t *testing.T) {
	tree := flatGrid(t, 4, 4)
	var f mathx.Frustum
	visible, _ := tree.Visible(&f, make([]culling.ChunkCoord, 0, 16))
	assert.Len(t, visible, 16)
}

func TestRayCast(t *testing.T) {
	tree := flatGrid(t, 4, 4)

	hit, ok := tree.RayCast(mathx.NewRay(mgl32.Vec3{25, 25, 50}, mgl32.Vec3{0, 0, -1}), 1000)
	require.True(t, ok)
	assert.Equal(t, culling.ChunkCoord{X: 2, Y: 2}, hit.Chunk)
	assert.InDelta(t, 49, hit.Distance, 1e-4)

	_, ok = tree.RayCast(mathx.NewRay(mgl32.Vec3{25, 25, 50}, mgl32.Vec3{0, 0, 1}), 1000)
	assert.False(t, ok)
}
