// Package mathx holds the geometry shared by animation, culling and extraction:
// TRS transforms, bounding boxes, planes, frustums and rays, all on top of mgl32.
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed translation, rotation and scale.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// NewTransform builds a unit-scale transform.
func NewTransform(translation mgl32.Vec3, rotation mgl32.Quat) Transform {
	return Transform{
		Translation: translation,
		Rotation:    rotation,
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// Mat4 returns translation * rotation * scale.
func (t Transform) Mat4() mgl32.Mat4 {
	translation := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	rotation := NormalizeOrIdentity(t.Rotation).Mat4()
	scale := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return translation.Mul4(rotation).Mul4(scale)
}

// Blend interpolates between a and b: linear for translation and scale, spherical for rotation.
func Blend(a, b Transform, t float32) Transform {
	return Transform{
		Translation: Lerp(a.Translation, b.Translation, t),
		Rotation:    Slerp(a.Rotation, b.Rotation, t),
		Scale:       Lerp(a.Scale, b.Scale, t),
	}
}

// Lerp linearly interpolates two vectors.
func Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// LerpFloat linearly interpolates two scalars.
func LerpFloat(a, b, t float32) float32 {
	return a + (b-a)*t
}

// NormalizeOrIdentity normalizes q, falling back to identity for zero or non-finite input.
func NormalizeOrIdentity(q mgl32.Quat) mgl32.Quat {
	lengthSq := q.Dot(q)
	if lengthSq <= 1e-12 || math.IsNaN(float64(lengthSq)) || math.IsInf(float64(lengthSq), 0) {
		return mgl32.QuatIdent()
	}
	return q.Scale(1 / float32(math.Sqrt(float64(lengthSq))))
}

// Slerp interpolates along the shortest arc between a and b.
func Slerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	a = NormalizeOrIdentity(a)
	b = NormalizeOrIdentity(b)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return NormalizeOrIdentity(mgl32.QuatSlerp(a, b, t))
}
