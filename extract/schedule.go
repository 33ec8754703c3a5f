// Package extract copies the committed simulation world into a new render snapshot through a
// schedule of stages layered by the snapshot resources they read and write.
package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/sim"
	"github.com/plus3/framecore/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrWriteConflict = errors.New("extract: stages in one layer write the same resource")
	ErrCycle         = errors.New("extract: stage dependency cycle")
	ErrDuplicateName = errors.New("extract: duplicate stage name")
)

// Resource names a part of the snapshot under construction.
type Resource uint8

const (
	SnapshotCamera Resource = iota
	SnapshotEnvironment
	SnapshotTerrain
	SnapshotModels
	SnapshotUI
	SnapshotGizmos
)

var resourceNames = [...]string{"camera", "environment", "terrain", "models", "ui", "gizmos"}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("resource(%d)", r)
}

// Access declares what a stage reads from and writes to the snapshot.
type Access struct {
	Reads  []Resource
	Writes []Resource
}

// Context is handed to every stage of one run. Stages of the same layer may run concurrently:
// they only read World and write the parts of Snapshot they declared.
type Context struct {
	Context  context.Context
	World    *sim.World
	Models   assets.Store[assets.Model]
	Snapshot *snapshot.RenderSnapshot
	Logger   *zap.Logger
}

// Stage copies one slice of the world into the snapshot. A stage may keep caches between runs,
// so a stage value belongs to a single schedule.
type Stage interface {
	Name() string
	Access() Access
	Extract(ctx *Context) error
}

// Observer is told when each stage starts and finishes. It must be safe for concurrent use when
// the schedule runs concurrently.
type Observer interface {
	StageStarted(frame uint64, stage string, layer int)
	StageFinished(frame uint64, stage string, layer int, d time.Duration, err error)
}

// StageStats accumulates the timing of one stage.
type StageStats struct {
	Name  string
	Layer int
	Runs  int64
	Last  time.Duration
	Max   time.Duration
	Total time.Duration
}

// Avg returns the mean duration per run.
func (s StageStats) Avg() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Runs)
}

// Schedule runs stages layer by layer. Every stage of a layer finishes before the next layer
// starts.
type Schedule struct {
	layers     [][]Stage
	concurrent bool
	observer   Observer
	logger     *zap.Logger

	mu    sync.Mutex
	stats map[string]*StageStats
	runs  int64
}

// Option configures a Schedule.
type Option func(*Schedule)

// Concurrent runs the stages of a layer on their own goroutines.
func Concurrent(on bool) Option {
	return func(s *Schedule) {
		s.concurrent = on
	}
}

// WithObserver installs a stage observer.
func WithObserver(o Observer) Option {
	return func(s *Schedule) {
		s.observer = o
	}
}

// WithLogger sets the logger handed to stages.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Schedule) {
		s.logger = logger
	}
}

// NewSchedule layers stages so that every stage runs in a later layer than all stages writing
// a resource it reads. Within a layer stages keep their registration order.
func NewSchedule(stages []Stage, opts ...Option) (*Schedule, error) {
	layerOf, err := layer(stages)
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		logger: zap.NewNop(),
		stats:  make(map[string]*StageStats, len(stages)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, st := range stages {
		l := layerOf[i]
		for len(s.layers) <= l {
			s.layers = append(s.layers, nil)
		}
		s.layers[l] = append(s.layers[l], st)
		s.stats[st.Name()] = &StageStats{Name: st.Name(), Layer: l}
	}

	for l, stages := range s.layers {
		written := make(map[Resource]string)
		for _, st := range stages {
			for _, r := range st.Access().Writes {
				if other, ok := written[r]; ok {
					return nil, fmt.Errorf("%w: %s and %s write %s in layer %d", ErrWriteConflict, other, st.Name(), r, l)
				}
				written[r] = st.Name()
			}
		}
	}
	return s, nil
}

// layer assigns each stage 1 + the deepest layer of the stages it depends on.
func layer(stages []Stage) ([]int, error) {
	names := make(map[string]bool, len(stages))
	writers := make(map[Resource][]int)
	for i, st := range stages {
		if names[st.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, st.Name())
		}
		names[st.Name()] = true
		for _, r := range st.Access().Writes {
			writers[r] = append(writers[r], i)
		}
	}

	deps := make([][]int, len(stages))
	for i, st := range stages {
		for _, r := range st.Access().Reads {
			for _, w := range writers[r] {
				if w != i && !slices.Contains(deps[i], w) {
					deps[i] = append(deps[i], w)
				}
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(stages))
	layers := make([]int, len(stages))
	var path []string

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(path, " -> "), stages[i].Name())
		}
		state[i] = visiting
		path = append(path, stages[i].Name())
		for _, d := range deps[i] {
			if err := visit(d); err != nil {
				return err
			}
			layers[i] = max(layers[i], layers[d]+1)
		}
		path = path[:len(path)-1]
		state[i] = done
		return nil
	}
	for i := range stages {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return layers, nil
}

// Layers returns the stage names of every layer.
func (s *Schedule) Layers() [][]string {
	out := make([][]string, len(s.layers))
	for i, stages := range s.layers {
		for _, st := range stages {
			out[i] = append(out[i], st.Name())
		}
	}
	return out
}

// Run extracts world into a new snapshot for frame. Runs must not overlap.
func (s *Schedule) Run(ctx context.Context, world *sim.World, frame uint64) (*snapshot.RenderSnapshot, error) {
	ec := &Context{
		Context:  ctx,
		World:    world,
		Models:   world.Models,
		Snapshot: &snapshot.RenderSnapshot{Frame: frame},
		Logger:   s.logger,
	}

	for l, stages := range s.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.concurrent || len(stages) == 1 {
			for _, st := range stages {
				if err := s.runStage(ec, st, l); err != nil {
					return nil, err
				}
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		layerCtx := *ec
		layerCtx.Context = gctx
		for _, st := range stages {
			g.Go(func() error {
				return s.runStage(&layerCtx, st, l)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	return ec.Snapshot, nil
}

func (s *Schedule) runStage(ec *Context, st Stage, l int) error {
	frame := ec.Snapshot.Frame
	if s.observer != nil {
		s.observer.StageStarted(frame, st.Name(), l)
	}

	start := time.Now()
	err := st.Extract(ec)
	d := time.Since(start)

	s.mu.Lock()
	stats := s.stats[st.Name()]
	stats.Runs++
	stats.Last = d
	stats.Total += d
	stats.Max = max(stats.Max, d)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.StageFinished(frame, st.Name(), l, d, err)
	}
	if err != nil {
		return fmt.Errorf("extract: stage %s: %w", st.Name(), err)
	}
	return nil
}

// Runs returns the number of completed runs.
func (s *Schedule) Runs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stats returns the timings of every stage in layer order.
func (s *Schedule) Stats() []StageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageStats, 0, len(s.stats))
	for _, stages := range s.layers {
		for _, st := range stages {
			out = append(out, *s.stats[st.Name()])
		}
	}
	return out
}
