package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Classification tolerances.
const (
	EpsClassify = 1e-5
	EpsDenom    = 1e-8
)

// Containment is the result of classifying a volume against a frustum.
type Containment uint8

const (
	Outside Containment = iota
	Intersect
	Inside
)

func (c Containment) String() string {
	switch c {
	case Outside:
		return "outside"
	case Intersect:
		return "intersect"
	case Inside:
		return "inside"
	default:
		return "unknown"
	}
}

// Plane is n·p + d = 0 with a unit normal. Degenerate planes have a zero normal.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// PlaneFromRow normalizes a clip-space row (a, b, c, d).
func PlaneFromRow(row mgl32.Vec4) Plane {
	normal := row.Vec3()
	length := normal.Len()
	if length <= EpsDenom || !finite(length) {
		return Plane{}
	}
	inv := 1 / length
	return Plane{Normal: normal.Mul(inv), Distance: row[3] * inv}
}

// PlaneFromPoints builds the plane through a, b and c (counter-clockwise front face).
func PlaneFromPoints(a, b, c mgl32.Vec3) Plane {
	normal := b.Sub(a).Cross(c.Sub(a))
	length := normal.Len()
	if length <= EpsDenom || !finite(length) {
		return Plane{}
	}
	normal = normal.Mul(1 / length)
	return Plane{Normal: normal, Distance: -normal.Dot(a)}
}

// SignedDistance returns the distance of p from the plane, positive on the normal side.
func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

// Degenerate reports whether the plane has no usable normal.
func (p Plane) Degenerate() bool {
	l := p.Normal.Len()
	return l <= EpsDenom || !finite(l) || !finite(p.Distance)
}

// Frustum is six inward-facing planes: left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the planes of a projection * view matrix (OpenGL clip space).
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	return Frustum{Planes: [6]Plane{
		PlaneFromRow(r3.Add(r0)),
		PlaneFromRow(r3.Sub(r0)),
		PlaneFromRow(r3.Add(r1)),
		PlaneFromRow(r3.Sub(r1)),
		PlaneFromRow(r3.Add(r2)),
		PlaneFromRow(r3.Sub(r2)),
	}}
}

// Degenerate reports whether any plane is unusable. Degenerate frustums accept everything.
func (f *Frustum) Degenerate() bool {
	for i := range f.Planes {
		if f.Planes[i].Degenerate() {
			return true
		}
	}
	return false
}

// Classify tests a box against every plane using its positive and negative vertices.
// Degenerate inputs classify as Inside so that geometry is never culled by accident.
func (f *Frustum) Classify(box BoundingBox) Containment {
	if box.Degenerate() || f.Degenerate() {
		return Inside
	}

	result := Inside
	for i := range f.Planes {
		pl := &f.Planes[i]

		var p, q mgl32.Vec3
		for axis := range 3 {
			if pl.Normal[axis] < 0 {
				p[axis], q[axis] = box.Min[axis], box.Max[axis]
			} else {
				p[axis], q[axis] = box.Max[axis], box.Min[axis]
			}
		}

		if pl.SignedDistance(p) < -EpsClassify {
			return Outside
		}
		if pl.SignedDistance(q) < -EpsClassify {
			result = Intersect
		}
	}
	return result
}

// Intersects reports whether any part of the box may be visible.
func (f *Frustum) Intersects(box BoundingBox) bool {
	return f.Classify(box) != Outside
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}
