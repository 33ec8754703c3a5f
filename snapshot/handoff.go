package snapshot

import (
	"context"
	"sync/atomic"
)

// Handoff passes snapshots from one producer to one consumer. It holds at most one snapshot:
// Publish blocks until the previous one has been taken, so a snapshot is never shared.
type Handoff struct {
	slot      chan *RenderSnapshot
	published atomic.Uint64
	taken     atomic.Uint64
}

func NewHandoff() *Handoff {
	return &Handoff{slot: make(chan *RenderSnapshot, 1)}
}

// Publish transfers ownership of s to the consumer. The producer must not touch s afterwards.
func (h *Handoff) Publish(ctx context.Context, s *RenderSnapshot) error {
	select {
	case h.slot <- s:
		h.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take waits for the next snapshot.
func (h *Handoff) Take(ctx context.Context) (*RenderSnapshot, error) {
	select {
	case s := <-h.slot:
		h.taken.Add(1)
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryTake returns the pending snapshot without waiting.
func (h *Handoff) TryTake() (*RenderSnapshot, bool) {
	select {
	case s := <-h.slot:
		h.taken.Add(1)
		return s, true
	default:
		return nil, false
	}
}

// Counts returns how many snapshots have been published and taken.
func (h *Handoff) Counts() (published, taken uint64) {
	return h.published.Load(), h.taken.Load()
}
