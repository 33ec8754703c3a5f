package main

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/framecore/arena"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/snapshot"
	"github.com/plus3/framecore/terrain"
)

// viewSlot is the render target of one frame in flight.
type viewSlot struct {
	image *ebiten.Image
	frame uint64
}

var lodColors = [terrain.LODCount]color.RGBA{
	{70, 150, 80, 255},
	{90, 130, 70, 255},
	{110, 110, 70, 255},
	{120, 100, 80, 255},
}

var (
	highlightColor = color.RGBA{255, 200, 40, 255}
	seamColor      = color.RGBA{200, 60, 60, 255}
	propColor      = color.RGBA{160, 110, 60, 255}
	selectedColor  = color.RGBA{255, 255, 255, 255}
)

// wireRenderer draws snapshots as wireframes projected through the snapshot camera.
type wireRenderer struct {
	terrain *terrain.Terrain
	models  assets.Store[assets.Model]

	width, height int
	prepared      map[arena.Handle[assets.Model]]color.RGBA
	latest        *viewSlot
}

func newWireRenderer(terr *terrain.Terrain, models assets.Store[assets.Model]) *wireRenderer {
	return &wireRenderer{
		terrain:  terr,
		models:   models,
		width:    1,
		height:   1,
		prepared: make(map[arena.Handle[assets.Model]]color.RGBA),
	}
}

// Resize sets the size of render targets created from now on.
func (r *wireRenderer) Resize(width, height int) {
	r.width, r.height = max(width, 1), max(height, 1)
}

func (r *wireRenderer) Prepare(snap *snapshot.RenderSnapshot, slot *viewSlot) error {
	if slot.image == nil || slot.image.Bounds().Dx() != r.width || slot.image.Bounds().Dy() != r.height {
		if slot.image != nil {
			slot.image.Deallocate()
		}
		slot.image = ebiten.NewImage(r.width, r.height)
	}
	for _, h := range snap.Models.ToPrepare {
		c := propColor
		if m, ok := r.models.Get(h); ok && m.Skeleton != nil {
			c = color.RGBA{80, 140, 220, 255}
		}
		r.prepared[h] = c
	}
	slot.frame = snap.Frame
	return nil
}

func (r *wireRenderer) Queue(snap *snapshot.RenderSnapshot, slot *viewSlot) error {
	dst := slot.image
	fog := snap.Environment.FogColor
	dst.Fill(color.RGBA{uint8(fog.X() * 255), uint8(fog.Y() * 255), uint8(fog.Z() * 255), 255})

	w, h := float32(r.width), float32(r.height)
	pv := snap.Camera.ProjView

	for _, c := range snap.Terrain.Chunks {
		bounds, ok := r.terrain.ChunkBounds(c.Coord)
		if !ok {
			continue
		}
		z := (bounds.Min.Z() + bounds.Max.Z()) / 2
		corners := [4]mgl32.Vec3{
			{bounds.Min.X(), bounds.Min.Y(), z},
			{bounds.Max.X(), bounds.Min.Y(), z},
			{bounds.Max.X(), bounds.Max.Y(), z},
			{bounds.Min.X(), bounds.Max.Y(), z},
		}
		clr := chunkColor(c)
		for i := range corners {
			strokeWorldLine(dst, pv, w, h, corners[i], corners[(i+1)%4], 1, clr)
		}
	}

	for _, m := range snap.Models.Models {
		pos := m.Transform.Col(3).Vec3()
		x, y, ok := project(pv, pos, w, h)
		if !ok {
			continue
		}
		clr, ok := r.prepared[m.Model]
		if !ok {
			clr = propColor
		}
		if m.Highlighted {
			clr = selectedColor
		}
		radius := float32(3)
		if len(m.Bones) > 0 {
			radius = 4
		}
		vector.DrawFilledCircle(dst, x, y, radius, clr, false)
	}

	verts := snap.Gizmos.Vertices
	for i := 0; i+1 < len(verts); i += 2 {
		strokeWorldLine(dst, pv, w, h, verts[i].Position, verts[i+1].Position, 1, toRGBA(verts[i].Color))
	}

	for _, rect := range snap.UI.Rects {
		size := rect.Max.Sub(rect.Min)
		vector.DrawFilledRect(dst, rect.Min.X(), rect.Min.Y(), size.X(), size.Y(), toRGBA(rect.Color), false)
	}

	r.latest = slot
	return nil
}

// Latest returns the most recently queued frame.
func (r *wireRenderer) Latest() *ebiten.Image {
	if r.latest == nil {
		return nil
	}
	return r.latest.image
}

func chunkColor(c snapshot.TerrainChunk) color.RGBA {
	switch {
	case c.Flags&snapshot.ChunkFlagHighlighted != 0:
		return highlightColor
	case c.Flags&0xF != 0:
		return seamColor
	default:
		return lodColors[min(int(c.LOD), len(lodColors)-1)]
	}
}

func toRGBA(c mgl32.Vec4) color.RGBA {
	clamp := func(v float32) uint8 { return uint8(min(max(v, 0), 1) * 255) }
	return color.RGBA{clamp(c.X()), clamp(c.Y()), clamp(c.Z()), clamp(c.W())}
}

// project maps a world position to pixel coordinates, failing for points behind the camera.
func project(pv mgl32.Mat4, p mgl32.Vec3, w, h float32) (float32, float32, bool) {
	clip := pv.Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-6 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return (ndc.X()*0.5 + 0.5) * w, (0.5 - ndc.Y()*0.5) * h, true
}

func strokeWorldLine(dst *ebiten.Image, pv mgl32.Mat4, w, h float32, a, b mgl32.Vec3, width float32, clr color.Color) {
	x0, y0, ok0 := project(pv, a, w, h)
	x1, y1, ok1 := project(pv, b, w, h)
	if !ok0 || !ok1 {
		return
	}
	vector.StrokeLine(dst, x0, y0, x1, y1, width, clr, false)
}
