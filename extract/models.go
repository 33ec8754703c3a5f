package extract

import (
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sim"
	"github.com/plus3/framecore/snapshot"
	"go.uber.org/zap"
)

type modelView struct {
	*sim.ModelInstance
	*mathx.Transform
	Animated *sim.Animated `ecs:"optional"`
	Selected *sim.Selected `ecs:"optional"`
}

// ModelsStage lists the model instances inside the camera frustum. Models seen for the first
// time are also listed in ToPrepare.
type ModelsStage struct {
	storage  *ecs.Storage
	view     *ecs.View[modelView]
	prepared *intmap.Set[uint64]
}

func NewModelsStage() *ModelsStage {
	return &ModelsStage{prepared: intmap.NewSet[uint64](64)}
}

func (*ModelsStage) Name() string { return "models" }

func (*ModelsStage) Access() Access {
	return Access{Reads: []Resource{SnapshotCamera}, Writes: []Resource{SnapshotModels}}
}

// Forget makes every model count as new again, for example after the renderer lost its
// resources.
func (s *ModelsStage) Forget() {
	s.prepared.Clear()
}

func (s *ModelsStage) Extract(ctx *Context) error {
	if s.storage != ctx.World.Storage {
		s.storage = ctx.World.Storage
		s.view = ecs.NewView[modelView](s.storage)
		s.prepared.Clear()
	}

	out := &ctx.Snapshot.Models
	*out = snapshot.Models{}
	frustum := &ctx.Snapshot.Camera.Frustum

	for id, m := range s.view.Iter() {
		model, ok := ctx.Models.Get(m.Model)
		if !ok {
			ctx.Logger.Debug("model instance references a missing model", zap.Uint64("entity", uint64(id)))
			continue
		}

		transform := m.Transform.Mat4()
		if !frustum.Intersects(mathx.TransformBox(model.Bounds, transform)) {
			continue
		}

		if s.prepared.Add(m.Model.Key()) {
			out.ToPrepare = append(out.ToPrepare, m.Model)
		}

		instance := snapshot.ModelToRender{
			Model:       m.Model,
			Transform:   transform,
			Highlighted: m.Selected != nil,
		}
		if m.Animated != nil {
			instance.Bones = slices.Clone(m.Animated.Pose.Bones)
		}
		out.Models = append(out.Models, instance)
	}
	return nil
}
