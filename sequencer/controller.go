package sequencer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
)

// MaxDeltaTicks caps how far a single update can move playback.
const MaxDeltaTicks = 125

// cogBoneID is the centre of gravity bone pinned by default COG positions.
const cogBoneID = 1

type queued struct {
	info  *MotionInfo
	speed float32
	// state is the pose state reached once this segment starts playing.
	state State
}

type playing struct {
	queued
	ticks     int32
	tpf       int32
	remaining int
}

type blendWindow struct {
	from    animation.LocalPose
	elapsed uint32
	total   uint32
}

// Controller plays queued motion segments for a single entity. The zero value is not usable;
// create one with NewController.
type Controller struct {
	pending []queued
	active  *playing

	state  State
	target State

	rootMotion mgl32.Vec3
	pose       animation.LocalPose
	blend      blendWindow

	lastRejected uint32
	rejected     bool

	samples []animation.BoneSample
}

// NewController creates an idle controller resting in state.
func NewController(state State) *Controller {
	return &Controller{state: state, target: state}
}

// State is the pose state of the segment currently playing, or of the last one played.
func (c *Controller) State() State {
	return c.state
}

// TargetState is the pose state the controller reaches once every queued segment has played.
func (c *Controller) TargetState() State {
	return c.target
}

// RootMotion returns the displacement produced by the last update.
func (c *Controller) RootMotion() mgl32.Vec3 {
	return c.rootMotion
}

// Pending returns the number of queued segments.
func (c *Controller) Pending() int {
	return len(c.pending)
}

// Active returns the playing segment and its position in ticks.
func (c *Controller) Active() (*MotionInfo, int32, bool) {
	if c.active == nil {
		return nil, 0, false
	}
	return c.active.info, c.active.ticks, true
}

// Idle reports whether nothing is playing or queued.
func (c *Controller) Idle() bool {
	return c.active == nil && len(c.pending) == 0
}

// Blending reports whether a cross fade is in progress.
func (c *Controller) Blending() bool {
	return c.blend.total > 0
}

// LastRejected returns the hash of the most recent request that could not transition.
func (c *Controller) LastRejected() (uint32, bool) {
	return c.lastRejected, c.rejected
}

// MostRecent returns the last queued segment, or the playing one when nothing is queued.
func (c *Controller) MostRecent() (*MotionInfo, bool) {
	if n := len(c.pending); n > 0 {
		return c.pending[n-1].info, true
	}
	if c.active != nil {
		return c.active.info, true
	}
	return nil, false
}

// Reset drops every queued and playing segment. The last pose is kept so the next segment can
// blend out of it.
func (c *Controller) Reset() {
	c.pending = c.pending[:0]
	c.active = nil
	c.rootMotion = mgl32.Vec3{}
	c.target = c.state
}

func (c *Controller) push(info *MotionInfo, speed float32, state State) {
	if info.Immediate {
		c.Reset()
	}
	c.pending = append(c.pending, queued{info: info, speed: speed, state: state})
	if state != StateNone {
		c.target = state
	}
}

func (c *Controller) reject(hash uint32) {
	c.lastRejected = hash
	c.rejected = true
}

func scaledTicksPerFrame(base uint32, speed float32) int32 {
	if speed <= 0 || math.IsNaN(float64(speed)) {
		speed = 1
	}
	return max(1, int32(math.Round(float64(base)/float64(speed))))
}

func deltaTicks(dt float32) int32 {
	ms := float64(dt) * 1000
	if !(ms > 0) {
		return 0
	}
	return int32(min(ms, MaxDeltaTicks))
}

func (p *playing) duration(m *animation.Motion) int32 {
	return p.tpf * int32(m.EndFrameCount())
}

func (p *playing) finished(m *animation.Motion) bool {
	d := p.duration(m)
	return d <= 0 || p.ticks > d-p.tpf
}

// Update advances playback by dt seconds and returns the local pose for skel together with the
// root motion produced during the step.
func (c *Controller) Update(dt float32, lib MotionLibrary, skel *animation.Skeleton) (animation.LocalPose, mgl32.Vec3) {
	c.rootMotion = mgl32.Vec3{}
	delta := deltaTicks(dt)

	if c.active != nil {
		c.advance(delta, lib)
	}

	if len(c.pending) > 0 && c.pending[0].info.Immediate {
		c.active = nil
		c.promote(lib, false)
	} else if c.active == nil && len(c.pending) > 0 {
		c.promote(lib, true)
	}

	if c.active == nil {
		c.blend = blendWindow{}
		if len(c.pose) != len(skel.Bones) {
			c.pose = skel.RestPose()
		}
		return c.pose, c.rootMotion
	}

	motion, ok := lib.Motion(c.active.info.Motion)
	if !ok {
		c.active = nil
		return c.pose, c.rootMotion
	}

	pose := c.sample(motion, lib, skel)
	if c.blend.total > 0 {
		if c.blend.elapsed >= c.blend.total || len(c.blend.from) != len(pose) {
			c.blend = blendWindow{}
		} else {
			t := float32(c.blend.elapsed) / float32(c.blend.total)
			pose = animation.BlendPoses(pose, c.blend.from, pose, t)
			c.blend.elapsed += uint32(delta)
		}
	}

	c.pose = pose
	return c.pose, c.rootMotion
}

func (c *Controller) advance(delta int32, lib MotionLibrary) {
	a := c.active
	motion, ok := lib.Motion(a.info.Motion)
	if !ok {
		c.active = nil
		return
	}

	if motion.Flags.Has(animation.Sped) {
		delta = delta * 3 / 2
	}

	hasPending := len(c.pending) > 0
	if hasPending && a.info.Looping && !a.info.TransitionGuard && a.remaining == 0 {
		c.active = nil
		return
	}

	previous := a.ticks
	a.ticks += delta

	// A long step can cover several completions of a short segment.
	wraps := 0
	done := false
	for !done && a.finished(motion) {
		wrap := false
		switch {
		case a.remaining > 0:
			a.remaining--
			wrap = a.remaining > 0
		case a.info.Looping:
			wrap = !hasPending
		}

		if !wrap {
			done = true
			break
		}
		d := a.duration(motion)
		a.ticks = max(0, a.ticks-d)
		wraps++
		if d <= 0 {
			break
		}
	}

	c.rootMotion = rootMotionDelta(a, motion, previous, wraps)
	if done {
		c.active = nil
	}
}

func rootMotionDelta(a *playing, m *animation.Motion, previous int32, wraps int) mgl32.Vec3 {
	if m.Flags.Has(animation.NoRootMotion) {
		return mgl32.Vec3{}
	}
	end := float32(m.EndFrameCount())
	if end <= 0 {
		return mgl32.Vec3{}
	}

	tpf := float32(a.tpf)
	from := min(max(float32(max(previous, 0))/tpf, 0), end)
	to := min(max(float32(max(a.ticks, 0))/tpf, 0), end)

	fromRoot := m.SampleLinearVelocity(from, false)
	if wraps == 0 {
		return m.SampleLinearVelocity(to, false).Sub(fromRoot)
	}
	endRoot := m.SampleLinearVelocity(end, false)
	cycle := endRoot.Sub(m.SampleLinearVelocity(0, false))
	tail := endRoot.Sub(fromRoot)
	return tail.Add(cycle.Mul(float32(wraps - 1))).Add(m.SampleLinearVelocity(to, false))
}

// promote starts the next enabled queued segment.
func (c *Controller) promote(lib MotionLibrary, blend bool) {
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		if !next.info.Enabled {
			continue
		}
		if _, ok := lib.Motion(next.info.Motion); !ok {
			continue
		}

		c.active = &playing{
			queued:    next,
			ticks:     int32(next.info.StartTimeTicks),
			tpf:       scaledTicksPerFrame(next.info.BaseTicksPerFrame, next.speed),
			remaining: max(0, next.info.RepeatCount),
		}
		if next.state != StateNone {
			c.state = next.state
		}

		c.blend = blendWindow{}
		if blend && !next.info.Immediate && next.info.BlendTicks > 0 && len(c.pose) > 0 {
			c.blend = blendWindow{from: c.pose.Clone(), total: next.info.BlendTicks}
		}
		return
	}
}

func (c *Controller) sample(m *animation.Motion, lib MotionLibrary, skel *animation.Skeleton) animation.LocalPose {
	pose := skel.RestPose()

	frame := float32(c.active.ticks) / float32(c.active.tpf)
	c.samples = m.Sample(frame, c.active.info.Looping, c.samples)
	for _, s := range c.samples {
		i, ok := skel.BoneIndex(s.BoneID)
		if !ok {
			continue
		}
		if s.HasTranslation {
			pose[i].Translation = s.Translation
		}
		if s.HasRotation {
			pose[i].Rotation = s.Rotation
		}
	}

	if cog, ok := lib.DefaultCOG(c.state); ok && !m.HasTranslation(cogBoneID) {
		if i, ok := skel.BoneIndex(cogBoneID); ok {
			pose[i].Translation = cog
		}
	}
	return pose
}
