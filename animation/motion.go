package animation

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/mathx"
)

// MotionFlags alter how a motion is timed and how it moves its owner.
type MotionFlags uint32

const (
	// ZIndependent motions do not follow the ground height.
	ZIndependent MotionFlags = 1 << iota
	// NoRootMotion motions never produce root motion.
	NoRootMotion
	// SkipLastFrame motions finish one frame early.
	SkipLastFrame
	// Sped motions advance 1.5 times faster.
	Sped
)

// Has reports whether all of want are set.
func (f MotionFlags) Has(want MotionFlags) bool {
	return f&want == want
}

// BoneKey is one bone's channels at a keyframe. A nil channel is not animated.
type BoneKey struct {
	BoneID      uint32
	Translation *mgl32.Vec3
	Rotation    *mgl32.Quat
}

// KeyFrame holds the channels of every animated bone at one frame of the timeline.
type KeyFrame struct {
	Frame uint32
	Bones []BoneKey

	// LinearVelocity is the accumulated root displacement at this frame.
	LinearVelocity mgl32.Vec3
}

// Motion is an immutable animation clip. Motions are shared between every MotionInfo that plays
// them and are never modified once loaded.
type Motion struct {
	Name              string
	FrameCount        uint32
	BaseTicksPerFrame uint32
	FromState         uint32
	ToState           uint32
	KeyFrames         []KeyFrame
	Flags             MotionFlags
}

// BoneSample is the interpolated value of a single bone's channels.
type BoneSample struct {
	BoneID      uint32
	Translation mgl32.Vec3
	Rotation    mgl32.Quat

	HasTranslation bool
	HasRotation    bool
}

// interpolationPair resolves the keyframes around frame and the blend factor between them.
func (m *Motion) interpolationPair(frame float32, looping bool) (*KeyFrame, *KeyFrame, float32, bool) {
	count := len(m.KeyFrames)
	switch count {
	case 0:
		return nil, nil, 0, false
	case 1:
		return &m.KeyFrames[0], &m.KeyFrames[0], 0, true
	}

	var local float32
	if looping {
		local = float32(math.Mod(float64(frame), float64(count)))
		if local < 0 {
			local += float32(count)
		}
	} else {
		local = min(max(frame, 0), float32(count-1))
	}

	left := min(int(local), count-1)
	right := left
	switch {
	case left+1 < count:
		right = left + 1
	case looping:
		right = 0
	}

	l, r := &m.KeyFrames[left], &m.KeyFrames[right]
	if left == right {
		return l, r, 0, true
	}

	denom := float32(r.Frame) - float32(l.Frame)
	if float32(math.Abs(float64(denom))) <= mathx.EpsDenom {
		return l, r, 0, true
	}

	t := float32(math.Abs(float64((local - float32(l.Frame)) / denom)))
	if t < 0 || t > 1 {
		t = 0
	}
	return l, r, t, true
}

// Sample interpolates every bone channel at frame. Bones are paired by position in the
// keyframe, and a channel is present only when both surrounding keys carry it.
func (m *Motion) Sample(frame float32, looping bool, out []BoneSample) []BoneSample {
	out = out[:0]
	left, right, t, ok := m.interpolationPair(frame, looping)
	if !ok {
		return out
	}

	pairs := min(len(left.Bones), len(right.Bones))
	for i := range pairs {
		lb, rb := &left.Bones[i], &right.Bones[i]
		sample := BoneSample{BoneID: lb.BoneID}
		if lb.Translation != nil && rb.Translation != nil {
			sample.Translation = mathx.Lerp(*lb.Translation, *rb.Translation, t)
			sample.HasTranslation = true
		}
		if lb.Rotation != nil && rb.Rotation != nil {
			sample.Rotation = interpolateRotation(*lb.Rotation, *rb.Rotation, t)
			sample.HasRotation = true
		}
		out = append(out, sample)
	}
	return out
}

// SampleLinearVelocity returns the accumulated root displacement at frame.
func (m *Motion) SampleLinearVelocity(frame float32, looping bool) mgl32.Vec3 {
	left, right, t, ok := m.interpolationPair(frame, looping)
	if !ok {
		return mgl32.Vec3{}
	}
	return mathx.Lerp(left.LinearVelocity, right.LinearVelocity, t)
}

// HasTranslation reports whether any keyframe animates the translation of bone.
func (m *Motion) HasTranslation(boneID uint32) bool {
	for i := range m.KeyFrames {
		for _, b := range m.KeyFrames[i].Bones {
			if b.BoneID == boneID && b.Translation != nil {
				return true
			}
		}
	}
	return false
}

// EndFrameCount is the number of frames the motion plays before it counts as finished.
func (m *Motion) EndFrameCount() uint32 {
	if m.Flags.Has(SkipLastFrame) && m.FrameCount > 0 {
		return m.FrameCount - 1
	}
	return m.FrameCount
}

// interpolateRotation blends along the shortest arc, falling back to a normalized linear blend
// when the rotations are nearly parallel.
func interpolateRotation(a, b mgl32.Quat, t float32) mgl32.Quat {
	a = mathx.NormalizeOrIdentity(a)
	b = mathx.NormalizeOrIdentity(b)

	dot := a.Dot(b)
	if dot < 0 {
		dot = -dot
		b = b.Scale(-1)
	}

	wa, wb := 1-t, t
	if 1-dot > 0.005 {
		theta := math.Acos(float64(min(dot, 1)))
		sinTheta := math.Sin(theta)
		if math.Abs(sinTheta) > 1e-7 {
			wa = float32(math.Sin(float64(1-t)*theta) / sinTheta)
			wb = float32(math.Sin(float64(t)*theta) / sinTheta)
		}
	}

	return mathx.NormalizeOrIdentity(a.Scale(wa).Add(b.Scale(wb)))
}
