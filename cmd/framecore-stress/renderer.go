package main

import (
	"time"

	"github.com/plus3/framecore/snapshot"
)

// frameSlot stands in for the GPU buffers of one frame in flight.
type frameSlot struct {
	index    int
	frame    uint64
	chunks   []uint32
	bones    int
	vertices int
}

// headlessRenderer copies each snapshot into its slot the way an upload would, without a device.
type headlessRenderer struct {
	last       time.Time
	frameTimes Stats[time.Duration]
	chunks     Stats[int]
	models     Stats[int]
}

func (r *headlessRenderer) Prepare(snap *snapshot.RenderSnapshot, slot *frameSlot) error {
	slot.frame = snap.Frame
	slot.chunks = slot.chunks[:0]
	for _, c := range snap.Terrain.Chunks {
		slot.chunks = append(slot.chunks, c.LOD)
	}
	slot.bones = 0
	for _, m := range snap.Models.Models {
		slot.bones += len(m.Bones)
	}
	slot.vertices = len(snap.Gizmos.Vertices)
	return nil
}

func (r *headlessRenderer) Queue(snap *snapshot.RenderSnapshot, slot *frameSlot) error {
	now := time.Now()
	if !r.last.IsZero() {
		r.frameTimes.Add(now.Sub(r.last))
	}
	r.last = now
	r.chunks.Add(len(slot.chunks))
	r.models.Add(len(snap.Models.Models))
	return nil
}
