package animation

import (
	"math"
	"slices"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/mathx"
)

// Key is a value pinned to a frame of a Track.
type Key[V any] struct {
	Frame uint32
	Value V
}

// Track is a sorted list of keys sampled with an interpolation function.
type Track[V any] struct {
	keys        []Key[V]
	interpolate func(a, b V, t float32) V
}

// NewTrack creates an empty track using interpolate between keys.
func NewTrack[V any](interpolate func(a, b V, t float32) V) *Track[V] {
	return &Track[V]{interpolate: interpolate}
}

// NewVec3Track creates a linearly interpolated vector track.
func NewVec3Track() *Track[mgl32.Vec3] {
	return NewTrack(mathx.Lerp)
}

// NewFloatTrack creates a linearly interpolated scalar track.
func NewFloatTrack() *Track[float32] {
	return NewTrack(mathx.LerpFloat)
}

// Insert adds a key, replacing any key already at frame.
func (t *Track[V]) Insert(frame uint32, value V) {
	i, found := slices.BinarySearchFunc(t.keys, frame, func(k Key[V], f uint32) int {
		return int(k.Frame) - int(f)
	})
	if found {
		t.keys[i].Value = value
		return
	}
	t.keys = slices.Insert(t.keys, i, Key[V]{Frame: frame, Value: value})
}

// Len returns the number of keys.
func (t *Track[V]) Len() int {
	return len(t.keys)
}

// LastFrame returns the frame of the last key.
func (t *Track[V]) LastFrame() (uint32, bool) {
	if len(t.keys) == 0 {
		return 0, false
	}
	return t.keys[len(t.keys)-1].Frame, true
}

// SampleSubFrame interpolates the track at a fractional frame. When looping, frames wrap
// into [first, last); otherwise they clamp to the key range. An empty track returns the zero value.
func (t *Track[V]) SampleSubFrame(frame float32, looping bool) V {
	var zero V
	switch len(t.keys) {
	case 0:
		return zero
	case 1:
		return t.keys[0].Value
	}

	first := float32(t.keys[0].Frame)
	last := float32(t.keys[len(t.keys)-1].Frame)

	f := frame
	if looping && last > first {
		span := float64(last - first)
		wrapped := math.Mod(float64(frame-first), span)
		if wrapped < 0 {
			wrapped += span
		}
		f = first + float32(wrapped)
	} else {
		f = min(max(f, first), last)
	}

	if f <= first {
		return t.keys[0].Value
	}
	if f >= last {
		return t.keys[len(t.keys)-1].Value
	}

	i := sort.Search(len(t.keys), func(i int) bool { return float32(t.keys[i].Frame) > f })
	a, b := t.keys[i-1], t.keys[i]
	s := (f - float32(a.Frame)) / (float32(b.Frame) - float32(a.Frame))
	return t.interpolate(a.Value, b.Value, min(max(s, 0), 1))
}
