// Package engine runs the frame loop: step the simulation, extract a snapshot, hand it to the
// render goroutine and let the renderer fill the current per-frame slot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/perframe"
	"github.com/plus3/framecore/sim"
	"github.com/plus3/framecore/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrFrameSkipped is returned by Step when the world could not be extracted this frame, for
// example because no camera is active yet.
var ErrFrameSkipped = errors.New("engine: frame skipped")

// Renderer consumes snapshots. Prepare creates GPU resources for snap.Models.ToPrepare and any
// other new data; Queue records the frame into slot. Both run on the render goroutine.
type Renderer[S any] interface {
	Prepare(snap *snapshot.RenderSnapshot, slot *S) error
	Queue(snap *snapshot.RenderSnapshot, slot *S) error
}

// Stats counts frames through the loop.
type Stats struct {
	Steps     uint64
	Published uint64
	Skipped   uint64
	Presented uint64
}

// Engine ties one world to one renderer.
type Engine[S any] struct {
	world    *sim.World
	schedule *extract.Schedule
	handoff  *snapshot.Handoff
	ring     *perframe.Ring[S]
	renderer Renderer[S]

	logger    *zap.Logger
	tick      time.Duration
	maxFrames uint64

	frame     uint64
	steps     atomic.Uint64
	skipped   atomic.Uint64
	presented atomic.Uint64
}

type options struct {
	logger    *zap.Logger
	tick      time.Duration
	maxFrames uint64
}

// Option configures an Engine.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTick sets the simulation step. Every step advances the world by exactly d.
func WithTick(d time.Duration) Option {
	return func(o *options) {
		o.tick = d
	}
}

// WithMaxFrames makes Run return after n frames have been presented. Zero runs until the context
// is cancelled.
func WithMaxFrames(n uint64) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}

// New creates an engine. The ring holds the renderer's per-frame slots.
func New[S any](world *sim.World, schedule *extract.Schedule, ring *perframe.Ring[S], renderer Renderer[S], opts ...Option) *Engine[S] {
	o := options{logger: zap.NewNop(), tick: time.Second / 60}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[S]{
		world:     world,
		schedule:  schedule,
		handoff:   snapshot.NewHandoff(),
		ring:      ring,
		renderer:  renderer,
		logger:    o.logger,
		tick:      o.tick,
		maxFrames: o.maxFrames,
	}
}

// World returns the simulated world. It must only be touched from the simulation goroutine.
func (e *Engine[S]) World() *sim.World {
	return e.world
}

// Schedule returns the extraction schedule.
func (e *Engine[S]) Schedule() *extract.Schedule {
	return e.schedule
}

// Stats returns the frame counters.
func (e *Engine[S]) Stats() Stats {
	published, _ := e.handoff.Counts()
	return Stats{
		Steps:     e.steps.Load(),
		Published: published,
		Skipped:   e.skipped.Load(),
		Presented: e.presented.Load(),
	}
}

// Step advances the world by dt seconds, extracts it and publishes the snapshot. It blocks while
// the previous snapshot has not been taken.
func (e *Engine[S]) Step(ctx context.Context, dt float64) error {
	e.world.Step(dt)
	e.steps.Add(1)

	snap, err := e.schedule.Run(ctx, e.world, e.frame)
	if err != nil {
		if errors.Is(err, sim.ErrNoCamera) {
			e.skipped.Add(1)
			return fmt.Errorf("%w: %w", ErrFrameSkipped, err)
		}
		return err
	}
	e.frame++
	return e.handoff.Publish(ctx, snap)
}

// Present takes the next snapshot and has the renderer prepare and queue it into the next slot.
func (e *Engine[S]) Present(ctx context.Context) (*snapshot.RenderSnapshot, error) {
	snap, err := e.handoff.Take(ctx)
	if err != nil {
		return nil, err
	}
	return snap, e.present(snap)
}

// TryPresent presents the pending snapshot if there is one. Hosts that drive stepping and
// drawing from a single goroutine use it with Ready instead of Run.
func (e *Engine[S]) TryPresent() (*snapshot.RenderSnapshot, bool, error) {
	snap, ok := e.handoff.TryTake()
	if !ok {
		return nil, false, nil
	}
	return snap, true, e.present(snap)
}

// Ready reports whether the last published snapshot has been taken, so Step will not block.
func (e *Engine[S]) Ready() bool {
	published, taken := e.handoff.Counts()
	return published == taken
}

func (e *Engine[S]) present(snap *snapshot.RenderSnapshot) error {
	slot := e.ring.Advance()
	if err := e.renderer.Prepare(snap, slot); err != nil {
		return fmt.Errorf("engine: prepare frame %d: %w", snap.Frame, err)
	}
	if err := e.renderer.Queue(snap, slot); err != nil {
		return fmt.Errorf("engine: queue frame %d: %w", snap.Frame, err)
	}
	e.presented.Add(1)
	return nil
}

// Run steps the simulation on one goroutine and presents on another until ctx is cancelled,
// either side fails, or the frame limit is reached.
func (e *Engine[S]) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(e.tick)
		defer ticker.Stop()
		dt := e.tick.Seconds()

		for e.maxFrames == 0 || e.frame < e.maxFrames {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			if err := e.Step(gctx, dt); err != nil {
				switch {
				case errors.Is(err, ErrFrameSkipped):
					e.logger.Debug("frame skipped", zap.Error(err))
				case gctx.Err() != nil:
					return nil
				default:
					return err
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		for e.maxFrames == 0 || e.presented.Load() < e.maxFrames {
			snap, err := e.Present(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			e.logger.Debug("frame presented",
				zap.Uint64("frame", snap.Frame),
				zap.Int("slot", e.ring.Index()),
				zap.Int("chunks", len(snap.Terrain.Chunks)),
				zap.Int("models", len(snap.Models.Models)))
		}
		return nil
	})

	return g.Wait()
}
