package scene

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/config"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
	"go.uber.org/zap"
)

var (
	Standing = sequencer.StateOf("standing")
	Walking  = sequencer.StateOf("walking")
)

// Sequences lists the named sequences the generated library registers.
var Sequences = []string{"idle", "wave", "walk"}

const (
	boneRoot = iota
	boneCOG
	boneLeftLeg
	boneRightLeg
	boneArm
)

// Skeleton is the generated character rig: a root, a centre of gravity, two legs and an arm.
func Skeleton() (*animation.Skeleton, error) {
	return animation.NewSkeleton([]animation.Bone{
		{ID: boneRoot, Name: "root", Parent: animation.NoParent, Rest: mathx.Identity()},
		{ID: boneCOG, Name: "cog", Parent: boneRoot, Rest: mathx.NewTransform(mgl32.Vec3{0, 0, 1}, mgl32.QuatIdent())},
		{ID: boneLeftLeg, Name: "leg_l", Parent: boneCOG, Rest: mathx.NewTransform(mgl32.Vec3{0, 0.2, 0}, mgl32.QuatIdent())},
		{ID: boneRightLeg, Name: "leg_r", Parent: boneCOG, Rest: mathx.NewTransform(mgl32.Vec3{0, -0.2, 0}, mgl32.QuatIdent())},
		{ID: boneArm, Name: "arm", Parent: boneCOG, Rest: mathx.NewTransform(mgl32.Vec3{0, 0.3, 0.6}, mgl32.QuatIdent())},
	})
}

// clip builds a motion whose bone swings by amplitude degrees over one cycle and whose root
// travels distance along +x.
func clip(name string, from, to sequencer.State, frames uint32, bone uint32, amplitude, distance float32) animation.Motion {
	m := animation.Motion{
		Name:              name,
		FrameCount:        frames,
		BaseTicksPerFrame: 33,
		FromState:         uint32(from),
		ToState:           uint32(to),
	}
	for f := range frames {
		phase := float64(f) / float64(frames) * 2 * math.Pi
		angle := mgl32.DegToRad(amplitude * float32(math.Sin(phase)))
		swing := mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
		counter := mgl32.QuatRotate(-angle, mgl32.Vec3{0, 1, 0})

		keys := []animation.BoneKey{{BoneID: bone, Rotation: &swing}}
		if bone == boneLeftLeg {
			keys = append(keys, animation.BoneKey{BoneID: boneRightLeg, Rotation: &counter})
		}
		m.KeyFrames = append(m.KeyFrames, animation.KeyFrame{
			Frame:          f,
			Bones:          keys,
			LinearVelocity: mgl32.Vec3{distance * float32(f) / float32(frames), 0, 0},
		})
	}
	return m
}

// Library builds the motion library every generated character plays from. A definitions file
// named by cfg is applied on top of the generated sequences.
func Library(cfg config.Animation, logger *zap.Logger) (*sequencer.Sequencer, error) {
	s := sequencer.New(sequencer.WithLogger(logger), sequencer.WithBlendTicks(cfg.BlendTicks))

	idle := s.AddMotion(clip("idle", Standing, Standing, 8, boneCOG, 2, 0))
	wave := s.AddMotion(clip("wave", Standing, Standing, 12, boneArm, 60, 0))
	start := s.AddMotion(clip("start_walk", Standing, Walking, 4, boneLeftLeg, 10, 0.3))
	walk := s.AddMotion(clip("walk", Walking, Walking, 8, boneLeftLeg, 25, 1.2))
	stop := s.AddMotion(clip("stop", Walking, Standing, 4, boneLeftLeg, 10, 0.3))

	looping := func(h *sequencer.MotionInfo) *sequencer.MotionInfo {
		h.Looping = true
		return h
	}
	s.AddSequence("idle", Standing, Standing, looping(s.NewMotionInfo(idle)))
	s.AddSequence("wave", Standing, Standing, s.NewMotionInfo(wave))
	s.AddSequence("walk", Walking, Walking, looping(s.NewMotionInfo(walk)))
	s.AddTransition("start_walk", Standing, Walking, s.NewMotionInfo(start))
	s.AddTransition("stop", Walking, Standing, s.NewMotionInfo(stop))
	s.SetDefaultCOG(Standing, mgl32.Vec3{0, 0, 1})
	s.SetDefaultCOG(Walking, mgl32.Vec3{0, 0, 0.95})

	if cfg.Defs == "" {
		return s, nil
	}
	f, err := os.Open(cfg.Defs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defs, err := sequencer.LoadDefs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Defs, err)
	}
	if err := defs.Apply(s); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Defs, err)
	}
	return s, nil
}
