package mathx

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ViewProjection holds a combined projection * view matrix and its inverse.
type ViewProjection struct {
	Mat mgl32.Mat4
	Inv mgl32.Mat4
}

// NewViewProjection combines projection and view.
func NewViewProjection(projection, view mgl32.Mat4) ViewProjection {
	m := projection.Mul4(view)
	return ViewProjection{Mat: m, Inv: m.Inv()}
}

// Unproject maps a normalized device coordinate back into world space.
func (vp ViewProjection) Unproject(ndc mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(ndc, vp.Inv)
}

// Frustum extracts the frustum planes of the combined matrix.
func (vp ViewProjection) Frustum() Frustum {
	return FrustumFromMatrix(vp.Mat)
}

// Ray is a half line with a normalized direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// NewRay normalizes direction. A zero direction yields a zero ray direction.
func NewRay(origin, direction mgl32.Vec3) Ray {
	if l := direction.Len(); l > EpsDenom {
		direction = direction.Mul(1 / l)
	} else {
		direction = mgl32.Vec3{}
	}
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectPlane returns the distance to the plane, or false when parallel or behind.
func (r Ray) IntersectPlane(p Plane) (float32, bool) {
	denom := p.Normal.Dot(r.Direction)
	if denom > -EpsDenom && denom < EpsDenom {
		return 0, false
	}
	t := -(p.Normal.Dot(r.Origin) + p.Distance) / denom
	if t < 0 {
		return 0, false
	}
	return t, true
}

// PickRay builds a ray from the near to the far plane through an NDC point.
func (vp ViewProjection) PickRay(ndcX, ndcY float32) Ray {
	near := vp.Unproject(mgl32.Vec3{ndcX, ndcY, -1})
	far := vp.Unproject(mgl32.Vec3{ndcX, ndcY, 1})
	return NewRay(near, far.Sub(near))
}
