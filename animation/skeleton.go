// Package animation holds skeletons, poses and the immutable motion clips sampled to drive them.
package animation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/mathx"
)

// NoParent marks a root bone.
const NoParent = ^uint32(0)

var (
	ErrBoneOutOfRange = errors.New("animation: parent index out of range")
	ErrSkeletonCycle  = errors.New("animation: bone hierarchy contains a cycle")
	ErrPoseMismatch   = errors.New("animation: pose length does not match skeleton")
)

// Bone is one node in a skeleton hierarchy.
type Bone struct {
	ID     uint32
	Name   string
	Parent uint32
	Rest   mathx.Transform
}

// Skeleton is an ordered, validated bone forest. Build one with NewSkeleton.
type Skeleton struct {
	// Bones is read-only after construction.
	Bones []Bone

	// order lists bone indices so that every parent precedes its children.
	order []uint32
	byID  map[uint32]int
}

// NewSkeleton validates the parent graph and returns the skeleton. Every walk from a
// bone towards its root must terminate within len(bones) steps. The skeleton keeps its own
// copy of bones.
func NewSkeleton(bones []Bone) (*Skeleton, error) {
	bones = slices.Clone(bones)
	count := uint32(len(bones))
	for i, bone := range bones {
		if bone.Parent != NoParent && bone.Parent >= count {
			return nil, fmt.Errorf("%w: bone %d (%q) has parent %d of %d bones",
				ErrBoneOutOfRange, i, bone.Name, bone.Parent, count)
		}
	}

	for i := range bones {
		steps := uint32(0)
		for at := uint32(i); bones[at].Parent != NoParent; at = bones[at].Parent {
			steps++
			if steps > count {
				return nil, fmt.Errorf("%w: starting at bone %d (%q)", ErrSkeletonCycle, i, bones[i].Name)
			}
		}
	}

	s := &Skeleton{Bones: bones, byID: make(map[uint32]int, len(bones))}
	s.order = s.hierarchyOrder()
	for i := range bones {
		if _, dup := s.byID[bones[i].ID]; !dup {
			s.byID[bones[i].ID] = i
		}
	}
	return s, nil
}

// hierarchyOrder returns a parents-first ordering. The graph is already known to be acyclic.
func (s *Skeleton) hierarchyOrder() []uint32 {
	order := make([]uint32, 0, len(s.Bones))
	placed := make([]bool, len(s.Bones))

	var place func(i uint32)
	place = func(i uint32) {
		if placed[i] {
			return
		}
		if p := s.Bones[i].Parent; p != NoParent {
			place(p)
		}
		placed[i] = true
		order = append(order, i)
	}

	for i := range s.Bones {
		place(uint32(i))
	}
	return order
}

// LocalTransform returns the bone's rest matrix composed with all of its ancestors.
func (s *Skeleton) LocalTransform(index uint32) mgl32.Mat4 {
	bone := &s.Bones[index]
	if bone.Parent == NoParent {
		return bone.Rest.Mat4()
	}
	return s.LocalTransform(bone.Parent).Mul4(bone.Rest.Mat4())
}

// ToPose evaluates LocalTransform for every bone in order.
func (s *Skeleton) ToPose() Pose {
	bones := make([]mgl32.Mat4, len(s.Bones))
	for i := range s.Bones {
		bones[i] = s.LocalTransform(uint32(i))
	}
	return Pose{Bones: bones}
}

// RestPose returns the local rest transform of every bone.
func (s *Skeleton) RestPose() LocalPose {
	local := make(LocalPose, len(s.Bones))
	for i := range s.Bones {
		local[i] = s.Bones[i].Rest
	}
	return local
}

// BoneIndex returns the index of the first bone with the given id.
func (s *Skeleton) BoneIndex(id uint32) (int, bool) {
	i, ok := s.byID[id]
	if !ok {
		return -1, false
	}
	return i, true
}

// Compose turns a local pose into model-space matrices, parents first.
func (s *Skeleton) Compose(local LocalPose) (Pose, error) {
	if len(local) != len(s.Bones) {
		return Pose{}, fmt.Errorf("%w: %d transforms for %d bones", ErrPoseMismatch, len(local), len(s.Bones))
	}

	bones := make([]mgl32.Mat4, len(s.Bones))
	for _, i := range s.order {
		m := local[i].Mat4()
		if p := s.Bones[i].Parent; p != NoParent {
			m = bones[p].Mul4(m)
		}
		bones[i] = m
	}
	return Pose{Bones: bones}, nil
}
