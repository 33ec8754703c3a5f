package sequencer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrUnknownSequence  = errors.New("sequencer: unknown sequence")
	ErrCannotTransition = errors.New("sequencer: cannot transition")
)

// Request asks a controller to play a named sequence.
type Request struct {
	SequenceHash  uint32
	PlaybackSpeed float32

	// Dedupe succeeds without queueing when the sequence's first motion is already the most
	// recently queued one.
	Dedupe bool
	// ForceClearQueue drops everything queued or playing before the sequence is added.
	ForceClearQueue bool
	// SkipStateTransitions queues the sequence as is, without state checks or transition motions.
	SkipStateTransitions bool
	// FirstEntryStartTicks is the tick the first segment starts playing from.
	FirstEntryStartTicks uint32
}

// NewRequest returns a request for the sequence called name at normal speed.
func NewRequest(name string) Request {
	return Request{SequenceHash: Hash(name), PlaybackSpeed: 1}
}

// Request queues the requested sequence on ctrl. A sequence whose begin state does not match the
// state ctrl will be in once its queue drains is reached through a registered transition sequence;
// without one the request fails with ErrCannotTransition and ctrl keeps playing what it has.
func (s *Sequencer) Request(ctrl *Controller, req Request) error {
	seq, ok := s.sequences.Get(req.SequenceHash)
	if !ok {
		return fmt.Errorf("%w: %08x", ErrUnknownSequence, req.SequenceHash)
	}

	if req.Dedupe && len(seq.Motions) > 0 {
		if recent, ok := ctrl.MostRecent(); ok && recent.Hash == seq.Motions[0].Hash {
			return nil
		}
	}

	var transition *Sequence
	from, to := ctrl.TargetState(), seq.Begin
	if req.ForceClearQueue {
		from = ctrl.State()
	}
	if !req.SkipStateTransitions && from != to && from != StateNone && to != StateNone {
		transition, ok = s.Transition(from, to)
		if !ok {
			ctrl.reject(seq.Hash)
			s.logger.Warn("motion sequence request rejected",
				zap.String("sequence", seq.Name),
				zap.Stringer("from", from),
				zap.Stringer("begin", to),
			)
			return fmt.Errorf("%w: %q from %v", ErrCannotTransition, seq.Name, from)
		}
	}

	if req.ForceClearQueue {
		ctrl.Reset()
	}

	if transition != nil {
		for i, info := range transition.Motions {
			ctrl.push(info, req.PlaybackSpeed, s.segmentState(transition, i))
		}
	}

	for i, info := range seq.Motions {
		if i == 0 && req.FirstEntryStartTicks != info.StartTimeTicks {
			first := *info
			first.StartTimeTicks = req.FirstEntryStartTicks
			info = &first
		}
		ctrl.push(info, req.PlaybackSpeed, s.segmentState(seq, i))
	}

	if len(seq.Motions) == 0 && seq.End != StateNone {
		ctrl.target = seq.End
	}
	return nil
}

// segmentState is the pose state entered when segment i of seq starts playing.
func (s *Sequencer) segmentState(seq *Sequence, i int) State {
	if i == len(seq.Motions)-1 && seq.End != StateNone {
		return seq.End
	}
	if m, ok := s.motions.Get(seq.Motions[i].Motion); ok {
		return State(m.ToState)
	}
	return StateNone
}
