package sequencer

import (
	"iter"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/kamstrup/intmap"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/arena"
	"go.uber.org/zap"
)

// MotionLibrary resolves the shared data a Controller needs while playing.
type MotionLibrary interface {
	Motion(h arena.Handle[animation.Motion]) (*animation.Motion, bool)
	DefaultCOG(state State) (mgl32.Vec3, bool)
}

// Sequencer owns the motion clips, the named sequences and the transition sequences of the
// pose state graph. It is built at load time and read only while controllers play.
type Sequencer struct {
	motions       *arena.Arena[animation.Motion]
	motionsByName *intmap.Map[uint32, arena.Handle[animation.Motion]]
	sequences     *intmap.Map[uint32, *Sequence]
	transitions   *intmap.Map[uint64, *Sequence]
	defaultCOG    *intmap.Map[State, mgl32.Vec3]

	blendTicks uint32
	logger     *zap.Logger
}

type Option func(*Sequencer)

// WithLogger sets the logger used for rejected requests and skipped definitions.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// WithBlendTicks sets the cross fade length given to segments created by NewMotionInfo.
func WithBlendTicks(ticks uint32) Option {
	return func(s *Sequencer) {
		s.blendTicks = ticks
	}
}

func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		motions:       arena.New[animation.Motion](64),
		motionsByName: intmap.New[uint32, arena.Handle[animation.Motion]](64),
		sequences:     intmap.New[uint32, *Sequence](64),
		transitions:   intmap.New[uint64, *Sequence](16),
		defaultCOG:    intmap.New[State, mgl32.Vec3](8),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMotion stores a clip under its name. Adding a name twice returns the first clip's handle.
func (s *Sequencer) AddMotion(m animation.Motion) arena.Handle[animation.Motion] {
	key := Hash(m.Name)
	if h, ok := s.motionsByName.Get(key); ok {
		return h
	}
	h := s.motions.Insert(m)
	s.motionsByName.Put(key, h)
	return h
}

// MotionHandle looks a clip up by name.
func (s *Sequencer) MotionHandle(name string) (arena.Handle[animation.Motion], bool) {
	return s.motionsByName.Get(Hash(name))
}

func (s *Sequencer) Motion(h arena.Handle[animation.Motion]) (*animation.Motion, bool) {
	return s.motions.Get(h)
}

// MotionCount returns the number of loaded clips.
func (s *Sequencer) MotionCount() int {
	return s.motions.Len()
}

// NewMotionInfo returns an enabled, non-looping segment that plays h at its native rate.
func (s *Sequencer) NewMotionInfo(h arena.Handle[animation.Motion]) *MotionInfo {
	info := &MotionInfo{
		Motion:            h,
		Enabled:           true,
		BaseTicksPerFrame: 1,
		BlendTicks:        s.blendTicks,
	}
	if m, ok := s.motions.Get(h); ok {
		info.Hash = Hash(m.Name)
		info.BaseTicksPerFrame = max(1, m.BaseTicksPerFrame)
	}
	return info
}

// InferStates derives a sequence's begin and end state from its first and last motion.
func (s *Sequencer) InferStates(motions []*MotionInfo) (State, State) {
	if len(motions) == 0 {
		return StateNone, StateNone
	}
	begin, end := StateNone, StateNone
	if m, ok := s.motions.Get(motions[0].Motion); ok {
		begin = State(m.FromState)
	}
	if m, ok := s.motions.Get(motions[len(motions)-1].Motion); ok {
		end = State(m.ToState)
	}
	return begin, end
}

// AddSequence registers a named sequence from begin to end, replacing any sequence of the same name.
func (s *Sequencer) AddSequence(name string, begin, end State, motions ...*MotionInfo) *Sequence {
	seq := &Sequence{Name: name, Hash: Hash(name), Begin: begin, End: end, Motions: motions}
	s.sequences.Put(seq.Hash, seq)
	return seq
}

// AddTransition registers the sequence queued automatically when a request needs to move a
// controller from one state to another.
func (s *Sequencer) AddTransition(name string, from, to State, motions ...*MotionInfo) *Sequence {
	seq := &Sequence{Name: name, Hash: Hash(name), Begin: from, End: to, Motions: motions}
	s.transitions.Put(transitionKey(from, to), seq)
	return seq
}

func (s *Sequencer) Sequence(hash uint32) (*Sequence, bool) {
	return s.sequences.Get(hash)
}

func (s *Sequencer) Transition(from, to State) (*Sequence, bool) {
	return s.transitions.Get(transitionKey(from, to))
}

// Sequences iterates every registered named sequence in no particular order.
func (s *Sequencer) Sequences() iter.Seq2[uint32, *Sequence] {
	return s.sequences.All()
}

// SetDefaultCOG pins the centre of gravity bone for motions played in state that do not animate it.
func (s *Sequencer) SetDefaultCOG(state State, position mgl32.Vec3) {
	s.defaultCOG.Put(state, position)
}

func (s *Sequencer) DefaultCOG(state State) (mgl32.Vec3, bool) {
	return s.defaultCOG.Get(state)
}
