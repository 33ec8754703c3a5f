package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/plus3/framecore/engine"
	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	var s Stats[time.Duration]
	s.Finalize()
	assert.Zero(t, s.Avg)

	for _, d := range []time.Duration{3 * time.Millisecond, time.Millisecond, 5 * time.Millisecond} {
		s.Add(d)
	}
	s.Finalize()
	assert.Equal(t, time.Millisecond, s.Min)
	assert.Equal(t, 5*time.Millisecond, s.Max)
	assert.Equal(t, 3*time.Millisecond, s.Avg)
	assert.Equal(t, 3, s.Count)
}

func TestReportGenerate(t *testing.T) {
	r := &Report{
		Duration: time.Second,
		Props:    10,
		Layers:   [][]string{{"camera", "environment"}, {"terrain"}},
		Engine:   engine.Stats{Steps: 60, Published: 59, Presented: 59, Skipped: 1},
		Stages:   []extract.StageStats{{Name: "camera", Runs: 59, Total: 59 * time.Microsecond}},
		Requests: 4,
		Rejected: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, r.Generate(&buf))
	out := buf.String()
	assert.Contains(t, out, "**Stage Layers:** [camera environment] -> [terrain]")
	assert.Contains(t, out, "**Skipped:** 1")
	assert.Contains(t, out, "| camera | 0 | 59 | 1µs |")
	assert.Contains(t, out, "4 (1 rejected)")
	assert.NotContains(t, out, "GC Pause")
}

func TestHeadlessRendererCopiesTheSnapshot(t *testing.T) {
	r := &headlessRenderer{}
	slot := &frameSlot{chunks: make([]uint32, 0, 4)}
	require.NoError(t, r.Prepare(snapshotWithChunks(3), slot))
	require.NoError(t, r.Queue(snapshotWithChunks(3), slot))
	require.NoError(t, r.Prepare(snapshotWithChunks(1), slot))
	assert.Len(t, slot.chunks, 1)
	assert.Equal(t, 1, r.chunks.Count)
}

func snapshotWithChunks(n int) *snapshot.RenderSnapshot {
	snap := &snapshot.RenderSnapshot{}
	for i := range n {
		snap.Terrain.Chunks = append(snap.Terrain.Chunks, snapshot.TerrainChunk{LOD: uint32(i)})
	}
	return snap
}
