package extract

import (
	"cmp"
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/plus3/framecore/culling"
	"github.com/plus3/framecore/snapshot"
)

// TerrainStage lists the chunks visible from the snapshot camera with their level of detail,
// seam flags and strata instances.
type TerrainStage struct {
	visible []culling.ChunkCoord
	lods    *intmap.Map[uint64, uint32]
	stats   culling.Stats
}

func NewTerrainStage() *TerrainStage {
	return &TerrainStage{lods: intmap.New[uint64, uint32](256)}
}

func (*TerrainStage) Name() string { return "terrain" }

func (*TerrainStage) Access() Access {
	return Access{Reads: []Resource{SnapshotCamera}, Writes: []Resource{SnapshotTerrain}}
}

// CullStats returns the traversal counters of the last run.
func (s *TerrainStage) CullStats() culling.Stats {
	return s.stats
}

func (s *TerrainStage) Extract(ctx *Context) error {
	out := &ctx.Snapshot.Terrain
	*out = snapshot.Terrain{}
	s.lods.Clear()

	res := ctx.World.Terrain()
	terr := res.Terrain
	if terr == nil {
		return nil
	}
	cam := ctx.Snapshot.Camera

	s.visible, s.stats = terr.QuadTree.Visible(&cam.Frustum, s.visible[:0])

	lodAt := func(c culling.ChunkCoord) (uint32, bool) {
		if lod, ok := s.lods.Get(c.Key()); ok {
			return lod, true
		}
		lod, ok := terr.ChunkLOD(c, cam.Position, cam.Forward, cam.Far)
		if ok {
			s.lods.Put(c.Key(), lod)
		}
		return lod, ok
	}

	out.Chunks = make([]snapshot.TerrainChunk, 0, len(s.visible))
	for _, c := range s.visible {
		center, _ := lodAt(c)

		var flags uint32
		for i, offset := range snapshot.NeighbourOffsets {
			lod, ok := lodAt(c.Add(offset))
			if !ok {
				lod = center
			}
			// Higher levels are coarser.
			if lod > center {
				flags |= 1 << i
			}
		}
		if res.HasHighlight && res.Highlight == c {
			flags |= snapshot.ChunkFlagHighlighted
		}

		chunk := snapshot.TerrainChunk{Coord: c, LOD: center, Flags: flags}
		out.Chunks = append(out.Chunks, chunk)

		strata := func(side snapshot.StrataSide) {
			edge := chunk
			edge.Flags |= snapshot.StrataFlags(side)
			out.Strata = append(out.Strata, edge)
			out.StrataSideCount[side]++
		}
		if c.X == 0 {
			strata(snapshot.StrataWest)
		}
		if c.X == terr.ChunkDim.X-1 {
			strata(snapshot.StrataEast)
		}
		if c.Y == 0 {
			strata(snapshot.StrataSouth)
		}
		if c.Y == terr.ChunkDim.Y-1 {
			strata(snapshot.StrataNorth)
		}
	}

	slices.SortStableFunc(out.Strata, func(a, b snapshot.TerrainChunk) int {
		return cmp.Compare(a.StrataSide(), b.StrataSide())
	})
	slices.SortStableFunc(out.Chunks, func(a, b snapshot.TerrainChunk) int {
		return cmp.Compare(a.LOD, b.LOD)
	})
	return nil
}
