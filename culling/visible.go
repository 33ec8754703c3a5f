package culling

import (
	"github.com/plus3/framecore/mathx"
)

// Stats counts the work of one traversal.
type Stats struct {
	// Tested is the number of nodes classified against the frustum.
	Tested int
	// Rejected nodes were wholly outside and their subtrees skipped.
	Rejected int
	// Accepted nodes were wholly inside and their leaves added without further tests.
	Accepted int
	// Visible is the number of chunks appended.
	Visible int
}

// Add accumulates the counters of another traversal.
func (s *Stats) Add(o Stats) {
	s.Tested += o.Tested
	s.Rejected += o.Rejected
	s.Accepted += o.Accepted
	s.Visible += o.Visible
}

// Visible appends the coordinate of every chunk that may be visible through frustum to out.
// The whole tree is traversed on every call.
func (t *QuadTree) Visible(frustum *mathx.Frustum, out []ChunkCoord) ([]ChunkCoord, Stats) {
	var stats Stats
	before := len(out)
	if t.Root != nil {
		out = t.visit(t.Root, frustum, out, &stats)
	}
	stats.Visible = len(out) - before
	return out, stats
}

func (t *QuadTree) visit(n *Node, frustum *mathx.Frustum, out []ChunkCoord, stats *Stats) []ChunkCoord {
	stats.Tested++
	switch frustum.Classify(n.Bounds) {
	case mathx.Outside:
		stats.Rejected++
		return out
	case mathx.Inside:
		stats.Accepted++
		return appendLeaves(n, out)
	}

	if n.Leaf() {
		return append(out, *n.Chunk)
	}
	for _, child := range n.Children {
		out = t.visit(child, frustum, out, stats)
	}
	return out
}

func appendLeaves(n *Node, out []ChunkCoord) []ChunkCoord {
	if n.Leaf() {
		return append(out, *n.Chunk)
	}
	for _, child := range n.Children {
		out = appendLeaves(child, out)
	}
	return out
}

// Hit is the first chunk struck by a ray.
type Hit struct {
	Chunk    ChunkCoord
	Distance float32
}

// RayCast returns the nearest chunk whose bounds the ray enters within maxDistance.
func (t *QuadTree) RayCast(ray mathx.Ray, maxDistance float32) (Hit, bool) {
	best := Hit{Distance: maxDistance}
	found := false

	var walk func(n *Node)
	walk = func(n *Node) {
		d, ok := n.Bounds.IntersectRay(ray)
		if !ok || d > best.Distance {
			return
		}
		if n.Leaf() {
			best = Hit{Chunk: *n.Chunk, Distance: d}
			found = true
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	return best, found
}
