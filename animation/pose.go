package animation

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/mathx"
)

// Pose is one model-space matrix per skeleton bone, index aligned with Skeleton.Bones.
type Pose struct {
	Bones []mgl32.Mat4
}

// Clone returns a copy that shares no memory with p.
func (p Pose) Clone() Pose {
	return Pose{Bones: slices.Clone(p.Bones)}
}

// LocalPose is one bone-local transform per skeleton bone, before hierarchical composition.
type LocalPose []mathx.Transform

// Clone returns a copy that shares no memory with p.
func (p LocalPose) Clone() LocalPose {
	return slices.Clone(p)
}

// BlendPoses writes the blend of from and to into out, bone by bone. Poses must be the same length.
func BlendPoses(out, from, to LocalPose, t float32) LocalPose {
	if cap(out) < len(to) {
		out = make(LocalPose, len(to))
	}
	out = out[:len(to)]
	for i := range to {
		if i >= len(from) {
			out[i] = to[i]
			continue
		}
		out[i] = mathx.Blend(from[i], to[i], t)
	}
	return out
}
