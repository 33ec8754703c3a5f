package debugui

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sequencer"
	"github.com/plus3/framecore/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panelFunc func()

func (f panelFunc) Render() { f() }

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	assert.Zero(t, h.Average())
	assert.Empty(t, h.Ordered())

	h.Push(1)
	h.Push(2)
	assert.Equal(t, []float32{1, 2}, h.Ordered())
	assert.InDelta(t, 1.5, h.Average(), 1e-6)

	h.Push(3)
	h.Push(4)
	assert.Equal(t, []float32{2, 3, 4}, h.Ordered())
	assert.Equal(t, []float32{4, 2, 3}, h.Raw())
	assert.InDelta(t, 3, h.Average(), 1e-6)
}

func TestPipelinePanelRecord(t *testing.T) {
	p := NewPipelinePanel(sim.NewWorld(), nil, nil, 4)
	p.Record(2 * time.Millisecond)
	p.Record(4 * time.Millisecond)
	assert.InDelta(t, 3, p.steps.Average(), 1e-4)
}

func TestStageRows(t *testing.T) {
	rows := stageRows([]extract.StageStats{
		{Name: "ui", Layer: 1},
		{Name: "environment", Layer: 0},
		{Name: "models", Layer: 1},
		{Name: "camera", Layer: 0},
	})
	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"camera", "environment", "models", "ui"}, names)
}

func populated(t *testing.T) (*sim.World, []ecs.EntityId) {
	t.Helper()
	w := sim.NewWorld()
	crate, err := w.Models.Add(assets.Model{Name: "crate"})
	require.NoError(t, err)

	ids := []ecs.EntityId{
		w.SpawnModel(crate, mathx.Identity()),
		w.SpawnModel(crate, mathx.Identity()),
		w.SpawnCamera(sim.Camera{FovY: 60, Near: 0.1, Far: 100}, true),
	}
	return w, ids
}

func TestCollectEntities(t *testing.T) {
	w, ids := populated(t)

	entities := collectEntities(w.Storage)
	require.Len(t, entities, 3)

	var got []ecs.EntityId
	for _, e := range entities {
		got = append(got, e.ID)
		assert.Equal(t, e.ID.ArchetypeId(), e.ArchetypeID)
	}
	assert.ElementsMatch(t, ids, got)

	assert.Empty(t, collectEntities(sim.NewWorld().Storage))
}

func TestFilterEntities(t *testing.T) {
	w, ids := populated(t)
	entities := collectEntities(w.Storage)

	assert.Len(t, filterEntities(entities, ""), 3)
	assert.Len(t, filterEntities(entities, "modelinstance"), 2)

	cameras := filterEntities(entities, "ActiveCamera")
	require.Len(t, cameras, 1)
	assert.Equal(t, ids[2], cameras[0].ID)

	assert.Empty(t, filterEntities(entities, "no such component"))
}

func TestSortEntities(t *testing.T) {
	a := ecs.NewEntityId(2, 0, 5)
	b := ecs.NewEntityId(1, 0, 7)
	c := ecs.NewEntityId(1, 0, 3)
	entities := []EntityInfo{
		{ID: a, ArchetypeID: 2, Components: []string{"b"}},
		{ID: b, ArchetypeID: 1, Components: []string{"c"}},
		{ID: c, ArchetypeID: 1, Components: []string{"a"}},
	}
	ids := func() []ecs.EntityId {
		out := make([]ecs.EntityId, len(entities))
		for i, e := range entities {
			out[i] = e.ID
		}
		return out
	}

	sortEntities(entities, sortByArchetype, true)
	assert.Equal(t, []ecs.EntityId{c, b, a}, ids())

	sortEntities(entities, sortByComponents, false)
	assert.Equal(t, []ecs.EntityId{b, a, c}, ids())

	sortEntities(entities, sortByID, true)
	assert.Equal(t, []ecs.EntityId{c, b, a}, ids())
}

func TestReflectionCacheFields(t *testing.T) {
	type inner struct {
		X       float32
		hidden  int
		Pointer *int
	}
	rc := NewReflectionCache()

	fields := rc.Fields(reflect.TypeFor[inner]())
	require.Len(t, fields, 2)
	assert.Equal(t, "X", fields[0].Name)
	assert.Equal(t, 0, fields[0].Index)
	assert.Equal(t, "Pointer", fields[1].Name)
	assert.Equal(t, 2, fields[1].Index)
	assert.True(t, fields[1].IsPointer)
	assert.Equal(t, reflect.TypeFor[int](), fields[1].Type)

	assert.Nil(t, rc.Fields(reflect.TypeFor[int]()))
	assert.Equal(t, fields, rc.Fields(reflect.TypeFor[inner]()))
}

func TestArchetypeOf(t *testing.T) {
	w, ids := populated(t)
	a := archetypeOf(w.Storage, ids[0])
	require.NotNil(t, a)
	assert.True(t, a.HasComponent(reflect.TypeFor[sim.ModelInstance]()))
}

func TestMotionRowsAndSequences(t *testing.T) {
	standing := sequencer.StateOf("standing")
	walking := sequencer.StateOf("walking")

	skel, err := animation.NewSkeleton([]animation.Bone{
		{ID: 0, Name: "root", Parent: animation.NoParent, Rest: mathx.Identity()},
	})
	require.NoError(t, err)

	seq := sequencer.New()
	walk := animation.Motion{Name: "walk", FrameCount: 2, BaseTicksPerFrame: 10, FromState: uint32(standing), ToState: uint32(walking)}
	for i := range 2 {
		walk.KeyFrames = append(walk.KeyFrames, animation.KeyFrame{Frame: uint32(i), LinearVelocity: mgl32.Vec3{}})
	}
	handle := seq.AddMotion(walk)
	seq.AddSequence("walk", standing, walking, seq.NewMotionInfo(handle))
	seq.AddSequence("idle", standing, standing, seq.NewMotionInfo(handle))

	w := sim.NewWorld(sim.WithSequencer(seq))
	hero, err := w.Models.Add(assets.Model{Name: "hero"})
	require.NoError(t, err)
	id := w.SpawnAnimated(hero, mathx.Identity(), skel, standing)
	w.SpawnModel(hero, mathx.Identity())
	require.NoError(t, w.Request(id, sequencer.NewRequest("walk")))

	panel := NewMotionPanel(w)
	rows := motionRows(panel.animated)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, walking, rows[0].Target)
	assert.Zero(t, rows[0].Rejected)

	var names []string
	for _, s := range sequenceList(seq) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"idle", "walk"}, names)
}

func TestInstallSpawnsPanels(t *testing.T) {
	w := sim.NewWorld()
	input := Install(w, panelFunc(func() {}), panelFunc(func() {}))
	require.NotNil(t, input.Get())

	items := filterEntities(collectEntities(w.Storage), "ImguiItem")
	assert.Len(t, items, 2)
}
