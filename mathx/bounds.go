package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BoundingBox is an axis aligned box.
type BoundingBox struct {
	Min, Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns max - min.
func (b BoundingBox) Extent() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Degenerate reports a box that cannot be classified reliably: any NaN, any negative
// extent, or zero extent on every axis. A box flat on one axis (flat terrain) is valid.
func (b BoundingBox) Degenerate() bool {
	zero := 0
	for axis := range 3 {
		lo, hi := b.Min[axis], b.Max[axis]
		if math.IsNaN(float64(lo)) || math.IsNaN(float64(hi)) || hi < lo {
			return true
		}
		if hi == lo {
			zero++
		}
	}
	return zero == 3
}

// Union returns the smallest box containing both.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	var out BoundingBox
	for axis := range 3 {
		out.Min[axis] = min(b.Min[axis], o.Min[axis])
		out.Max[axis] = max(b.Max[axis], o.Max[axis])
	}
	return out
}

// TransformBox returns the axis aligned bounds of box after applying m.
func TransformBox(box BoundingBox, m mgl32.Mat4) BoundingBox {
	inf := float32(math.Inf(1))
	out := BoundingBox{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
	for i := range 8 {
		corner := mgl32.Vec3{box.Min[0], box.Min[1], box.Min[2]}
		if i&1 != 0 {
			corner[0] = box.Max[0]
		}
		if i&2 != 0 {
			corner[1] = box.Max[1]
		}
		if i&4 != 0 {
			corner[2] = box.Max[2]
		}
		p := mgl32.TransformCoordinate(corner, m)
		for axis := range 3 {
			out.Min[axis] = min(out.Min[axis], p[axis])
			out.Max[axis] = max(out.Max[axis], p[axis])
		}
	}
	return out
}

// IntersectRay returns the entry distance of r into the box using the slab test. A ray starting
// inside the box enters at 0.
func (b BoundingBox) IntersectRay(r Ray) (float32, bool) {
	tMin := float32(0)
	tMax := float32(math.Inf(1))
	for axis := range 3 {
		origin, dir := r.Origin[axis], r.Direction[axis]
		if dir > -EpsDenom && dir < EpsDenom {
			if origin < b.Min[axis] || origin > b.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir
		t0 := (b.Min[axis] - origin) * inv
		t1 := (b.Max[axis] - origin) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = max(tMin, t0)
		tMax = min(tMax, t1)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
