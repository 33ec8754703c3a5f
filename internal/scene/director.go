package scene

import (
	"math/rand/v2"

	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/sequencer"
	"github.com/plus3/framecore/sim"
	"go.uber.org/zap"
)

// DirectorSystem keeps characters busy: every Interval simulated seconds each controller with
// nothing queued is given a random sequence.
type DirectorSystem struct {
	Animated ecs.Query[struct{ *sim.Animated }]
	Motions  ecs.Singleton[sim.Motions]
	Clock    ecs.Singleton[sim.Clock]

	Sequences []string
	Interval  float32
	Rand      *rand.Rand
	Logger    *zap.Logger

	next     float32
	Requests int
	Rejected int
}

func (s *DirectorSystem) Execute(frame *ecs.UpdateFrame) {
	clock := s.Clock.Get()
	if clock.SimTime < s.next || len(s.Sequences) == 0 {
		return
	}
	s.next = clock.SimTime + s.Interval

	library := s.Motions.Get().Sequencer
	for a := range s.Animated.Values() {
		ctrl := a.Controller
		if ctrl == nil || ctrl.Pending() > 0 {
			continue
		}
		name := s.Sequences[s.Rand.IntN(len(s.Sequences))]
		s.Requests++
		if err := library.Request(ctrl, sequencer.NewRequest(name)); err != nil {
			s.Rejected++
			s.Logger.Debug("director request rejected", zap.String("sequence", name), zap.Error(err))
		}
	}
}
