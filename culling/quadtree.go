// Package culling holds the quad-tree over terrain chunks and the per-frame frustum traversal
// that produces the visible chunk set.
package culling

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/mathx"
)

var ErrEmptyGrid = errors.New("culling: chunk grid is empty")

// ChunkCoord addresses a terrain chunk on the chunk grid.
type ChunkCoord struct {
	X, Y int32
}

// Key packs the coordinate into a single integer map key.
func (c ChunkCoord) Key() uint64 {
	return uint64(uint32(c.X))<<32 | uint64(uint32(c.Y))
}

// Add offsets the coordinate.
func (c ChunkCoord) Add(o ChunkCoord) ChunkCoord {
	return ChunkCoord{X: c.X + o.X, Y: c.Y + o.Y}
}

// MinMax is the elevation range of a chunk.
type MinMax struct {
	Min, Max float32
}

// Node is a quad-tree node. Leaves carry the chunk they bound; inner nodes own up to four children.
type Node struct {
	Bounds   mathx.BoundingBox
	Level    int
	Chunk    *ChunkCoord
	Children []*Node
}

// Leaf reports whether the node bounds a single chunk.
func (n *Node) Leaf() bool {
	return n.Chunk != nil
}

// QuadTree is built once from the chunk grid and never modified afterwards.
type QuadTree struct {
	Root      *Node
	MaxLevel  int
	ChunkDim  ChunkCoord
	ChunkSize float32

	leaves []*Node
}

// Build creates the tree bottom up: every level pairs 2x2 cells of the level below until a single
// root remains. leaves holds one elevation range per chunk in row-major order. Chunk x/y bounds
// span chunkSize world units; z comes from the elevation ranges.
func Build(chunkDim ChunkCoord, chunkSize float32, leaves []MinMax) (*QuadTree, error) {
	if chunkDim.X <= 0 || chunkDim.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, chunkDim.X, chunkDim.Y)
	}
	area := int(chunkDim.X) * int(chunkDim.Y)
	if len(leaves) != area {
		return nil, fmt.Errorf("culling: %d leaf ranges for a %dx%d grid", len(leaves), chunkDim.X, chunkDim.Y)
	}

	t := &QuadTree{ChunkDim: chunkDim, ChunkSize: chunkSize, leaves: make([]*Node, area)}

	level := make([]*Node, area)
	for y := range chunkDim.Y {
		for x := range chunkDim.X {
			i := int(y)*int(chunkDim.X) + int(x)
			coord := ChunkCoord{X: x, Y: y}
			node := &Node{
				Bounds: mathx.BoundingBox{
					Min: mgl32.Vec3{float32(x) * chunkSize, float32(y) * chunkSize, leaves[i].Min},
					Max: mgl32.Vec3{float32(x+1) * chunkSize, float32(y+1) * chunkSize, leaves[i].Max},
				},
				Chunk: &coord,
			}
			level[i] = node
			t.leaves[i] = node
		}
	}

	width, height := int(chunkDim.X), int(chunkDim.Y)
	depth := 0
	for width > 1 || height > 1 {
		depth++
		pw, ph := (width+1)/2, (height+1)/2
		parents := make([]*Node, pw*ph)
		for py := range ph {
			for px := range pw {
				parent := &Node{Level: depth}
				inf := float32(math.Inf(1))
				parent.Bounds = mathx.BoundingBox{
					Min: mgl32.Vec3{inf, inf, inf},
					Max: mgl32.Vec3{-inf, -inf, -inf},
				}
				for dy := range 2 {
					for dx := range 2 {
						cx, cy := px*2+dx, py*2+dy
						if cx >= width || cy >= height {
							continue
						}
						child := level[cy*width+cx]
						parent.Children = append(parent.Children, child)
						parent.Bounds = parent.Bounds.Union(child.Bounds)
					}
				}
				parents[py*pw+px] = parent
			}
		}
		level, width, height = parents, pw, ph
	}

	t.Root = level[0]
	t.MaxLevel = depth
	return t, nil
}

// Leaf returns the leaf node of a chunk.
func (t *QuadTree) Leaf(c ChunkCoord) (*Node, bool) {
	if c.X < 0 || c.Y < 0 || c.X >= t.ChunkDim.X || c.Y >= t.ChunkDim.Y {
		return nil, false
	}
	return t.leaves[int(c.Y)*int(t.ChunkDim.X)+int(c.X)], true
}

// ChunkBounds returns the bounding box of a chunk.
func (t *QuadTree) ChunkBounds(c ChunkCoord) (mathx.BoundingBox, bool) {
	leaf, ok := t.Leaf(c)
	if !ok {
		return mathx.BoundingBox{}, false
	}
	return leaf.Bounds, true
}

// Leaves iterates every chunk leaf in row-major order.
func (t *QuadTree) Leaves() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, leaf := range t.leaves {
			if !yield(leaf) {
				return
			}
		}
	}
}
