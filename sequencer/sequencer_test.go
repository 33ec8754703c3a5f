package sequencer_test

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/arena"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 0.01 // seconds, one frame of a 10 tick per frame motion

var (
	stateA = sequencer.StateOf("A")
	stateB = sequencer.StateOf("B")
)

func testSkeleton(t *testing.T) *animation.Skeleton {
	t.Helper()
	skel, err := animation.NewSkeleton([]animation.Bone{
		{ID: 0, Name: "root", Parent: animation.NoParent, Rest: mathx.Identity()},
		{ID: 1, Name: "cog", Parent: 0, Rest: mathx.NewTransform(mgl32.Vec3{0, 1, 0}, mgl32.QuatIdent())},
	})
	require.NoError(t, err)
	return skel
}

// testMotion has three frames that move bone 0 along x by one unit per frame.
func testMotion(name string, from, to sequencer.State) animation.Motion {
	m := animation.Motion{
		Name:              name,
		FrameCount:        3,
		BaseTicksPerFrame: 10,
		FromState:         uint32(from),
		ToState:           uint32(to),
	}
	for i := range 3 {
		x := float32(i)
		m.KeyFrames = append(m.KeyFrames, animation.KeyFrame{
			Frame:          uint32(i),
			LinearVelocity: mgl32.Vec3{x, 0, 0},
			Bones: []animation.BoneKey{
				{BoneID: 0, Translation: &mgl32.Vec3{x, 0, 0}},
			},
		})
	}
	return m
}

type fixture struct {
	seq  *sequencer.Sequencer
	skel *animation.Skeleton
	ab   *sequencer.MotionInfo
	ba   *sequencer.MotionInfo
	idle *sequencer.MotionInfo
}

func newFixture(t *testing.T) *fixture {
	s := sequencer.New(sequencer.WithBlendTicks(40))
	f := &fixture{seq: s, skel: testSkeleton(t)}

	f.ab = s.NewMotionInfo(s.AddMotion(testMotion("a_to_b", stateA, stateB)))
	f.ba = s.NewMotionInfo(s.AddMotion(testMotion("b_to_a", stateB, stateA)))
	f.idle = s.NewMotionInfo(s.AddMotion(testMotion("b_idle", stateB, stateB)))
	f.idle.Looping = true

	s.AddSequence("AB", stateA, stateB, f.ab)
	s.AddSequence("BA", stateB, stateA, f.ba)
	s.AddSequence("B idle", stateB, stateB, f.idle)
	return f
}

func (f *fixture) update(c *sequencer.Controller, n int) (animation.LocalPose, mgl32.Vec3) {
	var pose animation.LocalPose
	var root mgl32.Vec3
	for range n {
		pose, root = c.Update(frame, f.seq, f.skel)
	}
	return pose, root
}

func activeName(t *testing.T, f *fixture, c *sequencer.Controller) string {
	t.Helper()
	info, _, ok := c.Active()
	if !ok {
		return ""
	}
	m, ok := f.seq.Motion(info.Motion)
	require.True(t, ok)
	return m.Name
}

func TestRequestMovesBetweenStates(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)

	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))
	assert.Equal(t, stateB, c.TargetState())

	f.update(c, 1)
	assert.Equal(t, stateB, c.State())

	err := f.seq.Request(c, sequencer.NewRequest("AB"))
	assert.ErrorIs(t, err, sequencer.ErrCannotTransition)
	assert.Equal(t, stateB, c.State())
	assert.Equal(t, stateB, c.TargetState())
	rejected, ok := c.LastRejected()
	assert.True(t, ok)
	assert.Equal(t, sequencer.Hash("AB"), rejected)
	assert.Equal(t, "a_to_b", activeName(t, f, c))

	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("BA")))
	f.update(c, 4)
	assert.Equal(t, stateA, c.State())
}

func TestUnknownSequence(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)

	err := f.seq.Request(c, sequencer.NewRequest("missing"))
	assert.ErrorIs(t, err, sequencer.ErrUnknownSequence)
	assert.True(t, c.Idle())
}

func TestTransitionSequenceIsQueuedFirst(t *testing.T) {
	f := newFixture(t)
	f.seq.AddTransition("B to A", stateB, stateA, f.ba)

	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))
	assert.Equal(t, 2, c.Pending())

	f.update(c, 1)
	assert.Equal(t, "b_to_a", activeName(t, f, c))
	assert.Equal(t, stateA, c.State())

	f.update(c, 3)
	assert.Equal(t, "a_to_b", activeName(t, f, c))
	assert.Equal(t, stateB, c.State())
}

func TestStateNoneAcceptsAnything(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(sequencer.StateNone)
	assert.NoError(t, f.seq.Request(c, sequencer.NewRequest("BA")))
}

func TestRepeatCountAdvancesAfterCompletions(t *testing.T) {
	f := newFixture(t)
	looped := *f.idle
	looped.RepeatCount = 2
	f.seq.AddSequence("twice", stateB, stateA, &looped, f.ba)

	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("twice")))

	// One update promotes, then each completion takes three 10 tick updates.
	f.update(c, 6)
	assert.Equal(t, "b_idle", activeName(t, f, c))

	f.update(c, 1)
	assert.Equal(t, "b_to_a", activeName(t, f, c))
}

func TestLongStepCountsEveryCompletion(t *testing.T) {
	f := newFixture(t)
	looped := *f.idle
	looped.RepeatCount = 3
	f.seq.AddSequence("thrice", stateB, stateA, &looped, f.ba)

	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("thrice")))
	f.update(c, 1)

	// 125 ticks cover all three 30 tick repeats.
	c.Update(0.125, f.seq, f.skel)
	assert.Equal(t, "b_to_a", activeName(t, f, c))

	t.Run("looping wraps back into the segment", func(t *testing.T) {
		f := newFixture(t)
		c := sequencer.NewController(stateB)
		require.NoError(t, f.seq.Request(c, sequencer.NewRequest("B idle")))
		f.update(c, 1)

		_, root := c.Update(0.125, f.seq, f.skel)
		_, ticks, ok := c.Active()
		require.True(t, ok)
		assert.Equal(t, int32(5), ticks)
		// Four wraps of two units each, then half a frame into the fifth pass.
		assert.InDelta(t, 8.5, root.X(), 1e-4)
	})
}

func TestLoopingNeverAdvancesOnItsOwn(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("B idle")))

	f.update(c, 200)
	assert.Equal(t, "b_idle", activeName(t, f, c))
	assert.False(t, c.Idle())
}

func TestNonLoopingEndsAndHoldsPose(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))

	pose, _ := f.update(c, 3)
	held := pose.Clone()

	pose, _ = f.update(c, 1)
	assert.True(t, c.Idle())
	assert.Equal(t, held, pose)
	assert.Len(t, pose, len(f.skel.Bones))
}

func TestTransitionGuardWaitsForLoopBoundary(t *testing.T) {
	f := newFixture(t)
	guarded := *f.idle
	guarded.TransitionGuard = true
	f.seq.AddSequence("guarded idle", stateB, stateB, &guarded)

	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("guarded idle")))
	f.update(c, 2)

	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("BA")))
	f.update(c, 1)
	assert.Equal(t, "b_idle", activeName(t, f, c), "guarded loop keeps playing mid cycle")

	f.update(c, 1)
	assert.Equal(t, "b_to_a", activeName(t, f, c))
	assert.True(t, c.Blending())
}

func TestUnguardedLoopHandsOffWithBlend(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("B idle")))
	f.update(c, 2)

	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("BA")))
	pose, _ := f.update(c, 1)
	assert.Equal(t, "b_to_a", activeName(t, f, c))
	assert.True(t, c.Blending())
	// Blending starts from the outgoing pose at x = 1.
	assert.InDelta(t, 1, pose[0].Translation.X(), 1e-4)

	f.update(c, 4)
	assert.False(t, c.Blending())
}

func TestImmediateSwitchesWithoutBlend(t *testing.T) {
	f := newFixture(t)
	now := *f.ba
	now.Immediate = true
	f.seq.AddSequence("BA now", stateB, stateA, &now)

	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("B idle")))
	f.update(c, 2)

	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("BA now")))
	assert.Equal(t, 1, c.Pending())

	pose, _ := f.update(c, 1)
	assert.Equal(t, "b_to_a", activeName(t, f, c))
	assert.False(t, c.Blending())
	assert.InDelta(t, 0, pose[0].Translation.X(), 1e-4)
}

func TestDisabledSegmentsAreSkipped(t *testing.T) {
	f := newFixture(t)
	off := *f.ab
	off.Enabled = false
	f.seq.AddSequence("skip", stateA, stateA, &off, f.ba)

	c := sequencer.NewController(stateA)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("skip")))
	f.update(c, 1)
	assert.Equal(t, "b_to_a", activeName(t, f, c))
}

func TestDedupe(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateB)

	req := sequencer.NewRequest("B idle")
	req.Dedupe = true
	require.NoError(t, f.seq.Request(c, req))
	require.NoError(t, f.seq.Request(c, req))
	assert.Equal(t, 1, c.Pending())
}

func TestForceClearQueue(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateB)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("B idle")))
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("B idle")))
	assert.Equal(t, 2, c.Pending())

	req := sequencer.NewRequest("BA")
	req.ForceClearQueue = true
	require.NoError(t, f.seq.Request(c, req))
	assert.Equal(t, 1, c.Pending())
}

func TestFirstEntryStartTicksDoesNotMutateSharedInfo(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)

	req := sequencer.NewRequest("AB")
	req.FirstEntryStartTicks = 10
	require.NoError(t, f.seq.Request(c, req))
	f.update(c, 1)

	_, ticks, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, int32(10), ticks)
	assert.Equal(t, uint32(0), f.ab.StartTimeTicks)
}

func TestRootMotion(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))

	_, root := f.update(c, 1)
	assert.Equal(t, mgl32.Vec3{}, root)

	_, root = f.update(c, 1)
	assert.InDelta(t, 1, root.X(), 1e-4)
	assert.Equal(t, root, c.RootMotion())

	h, ok := f.seq.MotionHandle("a_to_b")
	require.True(t, ok)
	m, _ := f.seq.Motion(h)
	m.Flags |= animation.NoRootMotion
	_, root = f.update(c, 1)
	assert.Equal(t, mgl32.Vec3{}, root)
}

func TestSpedMotionAdvancesFaster(t *testing.T) {
	f := newFixture(t)
	h, _ := f.seq.MotionHandle("a_to_b")
	m, _ := f.seq.Motion(h)
	m.Flags |= animation.Sped

	c := sequencer.NewController(stateA)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))
	f.update(c, 2)

	_, ticks, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, int32(15), ticks)
}

func TestPlaybackSpeedScalesTicksPerFrame(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)

	req := sequencer.NewRequest("AB")
	req.PlaybackSpeed = 2
	require.NoError(t, f.seq.Request(c, req))

	// At double speed a frame lasts 5 ticks, so one 10 tick update reaches frame 2.
	pose, _ := f.update(c, 2)
	assert.InDelta(t, 2, pose[0].Translation.X(), 1e-4)
}

func TestDefaultCOGPinsUnanimatedCentreOfGravity(t *testing.T) {
	f := newFixture(t)
	f.seq.SetDefaultCOG(stateB, mgl32.Vec3{0, 5, 0})

	c := sequencer.NewController(stateA)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))

	pose, _ := f.update(c, 1)
	cog, ok := f.skel.BoneIndex(1)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 5, 0}, pose[cog].Translation)
}

type missingLibrary struct {
	*sequencer.Sequencer
}

func (missingLibrary) Motion(arena.Handle[animation.Motion]) (*animation.Motion, bool) {
	return nil, false
}

func TestStaleMotionHandleAnimatesNothing(t *testing.T) {
	f := newFixture(t)
	c := sequencer.NewController(stateA)
	require.NoError(t, f.seq.Request(c, sequencer.NewRequest("AB")))

	pose, root := c.Update(frame, missingLibrary{f.seq}, f.skel)
	assert.Equal(t, f.skel.RestPose(), pose)
	assert.Equal(t, mgl32.Vec3{}, root)
	assert.True(t, c.Idle())
}

const defsYAML = `
motions:
  - name: a_to_b
    flags: [sped, skip_last_frame]
sequences:
  - name: walk
    motions:
      - motion: a_to_b
      - motion: b_idle
        loop: true
        reps: 3
  - name: ghost
    begin: A
    end: A
    motions:
      - motion: does_not_exist
transitions:
  - name: back
    from: B
    to: A
    motions:
      - motion: b_to_a
        immediate: true
        blend_ticks: 0
default_cog:
  - state: B
    position: [0, 2, 0]
`

func TestLoadDefs(t *testing.T) {
	f := newFixture(t)
	defs, err := sequencer.LoadDefs(strings.NewReader(defsYAML))
	require.NoError(t, err)
	require.NoError(t, defs.Apply(f.seq))

	walk, ok := f.seq.Sequence(sequencer.Hash("walk"))
	require.True(t, ok)
	assert.Equal(t, stateA, walk.Begin)
	assert.Equal(t, stateB, walk.End)
	require.Len(t, walk.Motions, 2)
	assert.True(t, walk.Motions[1].Looping)
	assert.True(t, walk.Motions[1].TransitionGuard)
	assert.Equal(t, 3, walk.Motions[1].RepeatCount)
	assert.Equal(t, uint32(40), walk.Motions[0].BlendTicks)

	ghost, ok := f.seq.Sequence(sequencer.Hash("ghost"))
	require.True(t, ok)
	assert.Empty(t, ghost.Motions)

	back, ok := f.seq.Transition(stateB, stateA)
	require.True(t, ok)
	require.Len(t, back.Motions, 1)
	assert.True(t, back.Motions[0].Immediate)
	assert.Zero(t, back.Motions[0].BlendTicks)

	h, _ := f.seq.MotionHandle("a_to_b")
	m, _ := f.seq.Motion(h)
	assert.True(t, m.Flags.Has(animation.Sped|animation.SkipLastFrame))

	cog, ok := f.seq.DefaultCOG(stateB)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, cog)
}

func TestLoadDefsRejectsUnknownKeys(t *testing.T) {
	_, err := sequencer.LoadDefs(strings.NewReader("sequences:\n  - name: x\n    colour: red\n"))
	assert.ErrorIs(t, err, sequencer.ErrInvalidDefs)

	defs, err := sequencer.LoadDefs(strings.NewReader("motions:\n  - name: a_to_b\n    flags: [bouncy]\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, defs.Apply(newFixture(t).seq), sequencer.ErrInvalidDefs)
}
