package extract_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	name   string
	access extract.Access
	err    error
}

func (s *fakeStage) Name() string           { return s.name }
func (s *fakeStage) Access() extract.Access { return s.access }
func (s *fakeStage) Extract(*extract.Context) error {
	return s.err
}

func stage(name string, reads, writes []extract.Resource) *fakeStage {
	return &fakeStage{name: name, access: extract.Access{Reads: reads, Writes: writes}}
}

type event struct {
	frame    uint64
	stage    string
	layer    int
	finished bool
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) StageStarted(frame uint64, stage string, layer int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{frame: frame, stage: stage, layer: layer})
}

func (r *recorder) StageFinished(frame uint64, stage string, layer int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{frame: frame, stage: stage, layer: layer, finished: true})
}

func TestDefaultLayers(t *testing.T) {
	s, err := extract.NewSchedule(extract.DefaultStages())
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"camera", "environment"},
		{"terrain", "models", "ui", "gizmos"},
	}, s.Layers())
}

func TestLayersFollowReads(t *testing.T) {
	cam, env := extract.SnapshotCamera, extract.SnapshotEnvironment
	s, err := extract.NewSchedule([]extract.Stage{
		stage("c", []extract.Resource{env}, []extract.Resource{extract.SnapshotTerrain}),
		stage("b", []extract.Resource{cam}, []extract.Resource{env}),
		stage("a", nil, []extract.Resource{cam}),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, s.Layers())
}

func TestNewScheduleErrors(t *testing.T) {
	cam, env := extract.SnapshotCamera, extract.SnapshotEnvironment

	t.Run("write conflict", func(t *testing.T) {
		_, err := extract.NewSchedule([]extract.Stage{
			stage("a", nil, []extract.Resource{cam}),
			stage("b", nil, []extract.Resource{cam}),
		})
		assert.ErrorIs(t, err, extract.ErrWriteConflict)
	})

	t.Run("writers in different layers", func(t *testing.T) {
		s, err := extract.NewSchedule([]extract.Stage{
			stage("a", nil, []extract.Resource{cam}),
			stage("b", []extract.Resource{env}, []extract.Resource{cam}),
			stage("c", nil, []extract.Resource{env}),
		})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "c"}, {"b"}}, s.Layers())
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := extract.NewSchedule([]extract.Stage{
			stage("a", []extract.Resource{cam}, []extract.Resource{env}),
			stage("b", []extract.Resource{env}, []extract.Resource{cam}),
		})
		assert.ErrorIs(t, err, extract.ErrCycle)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := extract.NewSchedule([]extract.Stage{stage("a", nil, nil), stage("a", nil, nil)})
		assert.ErrorIs(t, err, extract.ErrDuplicateName)
	})

	t.Run("reading own write is not a cycle", func(t *testing.T) {
		_, err := extract.NewSchedule([]extract.Stage{
			stage("a", []extract.Resource{cam}, []extract.Resource{cam}),
		})
		assert.NoError(t, err)
	})
}

func TestCameraAndEnvironmentPrecedeEverythingElse(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		rec := &recorder{}
		s, err := extract.NewSchedule(extract.DefaultStages(),
			extract.Concurrent(concurrent),
			extract.WithObserver(rec))
		require.NoError(t, err)

		w := newWorld(t)
		for frame := range uint64(5) {
			w.Step(1.0 / 60)
			snap, err := s.Run(context.Background(), w, frame)
			require.NoError(t, err)
			assert.Equal(t, frame, snap.Frame)
		}

		for frame := range uint64(5) {
			lastFirstLayer, firstSecondLayer := -1, -1
			started := map[string]bool{}
			for i, e := range rec.events {
				if e.frame != frame {
					continue
				}
				if e.layer == 0 && e.finished {
					lastFirstLayer = i
				}
				if e.layer == 1 && !e.finished && firstSecondLayer < 0 {
					firstSecondLayer = i
				}
				if !e.finished {
					started[e.stage] = true
				}
			}
			assert.Len(t, started, 6)
			assert.Less(t, lastFirstLayer, firstSecondLayer, "frame %d concurrent=%v", frame, concurrent)
		}

		stats := s.Stats()
		require.Len(t, stats, 6)
		for _, st := range stats {
			assert.Equal(t, int64(5), st.Runs, st.Name)
		}
		assert.Equal(t, int64(5), s.Runs())
	}
}

func TestSequentialRunKeepsRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	s, err := extract.NewSchedule(extract.DefaultStages(), extract.WithObserver(rec))
	require.NoError(t, err)

	_, err = s.Run(context.Background(), newWorld(t), 0)
	require.NoError(t, err)

	var order []string
	for _, e := range rec.events {
		if !e.finished {
			order = append(order, e.stage)
		}
	}
	assert.Equal(t, []string{"camera", "environment", "terrain", "models", "ui", "gizmos"}, order)
}

func TestRunAlwaysReturnsANewSnapshot(t *testing.T) {
	s, err := extract.NewSchedule(extract.DefaultStages())
	require.NoError(t, err)
	w := newWorld(t)

	a, err := s.Run(context.Background(), w, 1)
	require.NoError(t, err)
	b, err := s.Run(context.Background(), w, 2)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, uint64(1), a.Frame)
}

func TestStageErrorStopsTheRun(t *testing.T) {
	boom := errors.New("boom")
	after := stage("after", []extract.Resource{extract.SnapshotCamera}, nil)
	rec := &recorder{}
	s, err := extract.NewSchedule([]extract.Stage{
		&fakeStage{name: "broken", access: extract.Access{Writes: []extract.Resource{extract.SnapshotCamera}}, err: boom},
		after,
	}, extract.WithObserver(rec))
	require.NoError(t, err)

	snap, err := s.Run(context.Background(), newWorld(t), 0)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "broken")
	assert.Nil(t, snap)
	assert.Len(t, rec.events, 2, "the second layer never starts")
}

func TestRunWithoutCamera(t *testing.T) {
	s, err := extract.NewSchedule(extract.DefaultStages(), extract.Concurrent(true))
	require.NoError(t, err)

	_, err = s.Run(context.Background(), sim.NewWorld(), 0)
	assert.ErrorIs(t, err, sim.ErrNoCamera)
}

func TestRunHonoursCancellation(t *testing.T) {
	s, err := extract.NewSchedule(extract.DefaultStages())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx, newWorld(t), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
