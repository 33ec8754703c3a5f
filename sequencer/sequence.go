package sequencer

import (
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/arena"
)

// MotionInfo is one playable segment of a sequence. It is shared by every controller that queues
// it and must not be modified after it is added to a Sequencer.
type MotionInfo struct {
	Hash   uint32
	Motion arena.Handle[animation.Motion]

	RepeatCount     int
	Looping         bool
	TransitionGuard bool
	Immediate       bool
	Enabled         bool

	StartTimeTicks    uint32
	BaseTicksPerFrame uint32

	// BlendTicks is the length of the cross fade into this segment. Zero cuts directly.
	BlendTicks uint32
}

// Sequence is an edge of the pose state graph: the motions played while moving from Begin to End.
type Sequence struct {
	Name    string
	Hash    uint32
	Begin   State
	End     State
	Motions []*MotionInfo
}
