// Package assets holds loaded asset data behind generation-checked handles.
package assets

import (
	"errors"
	"fmt"
	"iter"

	"github.com/plus3/framecore/animation"
	"github.com/plus3/framecore/arena"
	"github.com/plus3/framecore/mathx"
)

var ErrDuplicateModel = errors.New("assets: model already loaded")

// Store resolves handles issued by an asset store. Stale handles resolve to false.
type Store[T any] interface {
	Get(h arena.Handle[T]) (*T, bool)
}

// Model is a renderable mesh. Skeleton is nil for static models.
type Model struct {
	Name     string
	Bounds   mathx.BoundingBox
	Skeleton *animation.Skeleton
}

// Models is an in-memory model store keyed by name.
type Models struct {
	models *arena.Arena[Model]
	byName map[string]arena.Handle[Model]
}

var _ Store[Model] = (*Models)(nil)

func NewModels() *Models {
	return &Models{
		models: arena.New[Model](64),
		byName: make(map[string]arena.Handle[Model]),
	}
}

// Add stores a model. Names are unique.
func (m *Models) Add(model Model) (arena.Handle[Model], error) {
	if _, ok := m.byName[model.Name]; ok {
		return arena.Handle[Model]{}, fmt.Errorf("%w: %q", ErrDuplicateModel, model.Name)
	}
	h := m.models.Insert(model)
	m.byName[model.Name] = h
	return h, nil
}

func (m *Models) Get(h arena.Handle[Model]) (*Model, bool) {
	return m.models.Get(h)
}

// Lookup finds a model by name.
func (m *Models) Lookup(name string) (arena.Handle[Model], bool) {
	h, ok := m.byName[name]
	return h, ok
}

// Remove unloads a model. Outstanding handles go stale.
func (m *Models) Remove(h arena.Handle[Model]) bool {
	model, ok := m.models.Remove(h)
	if ok {
		delete(m.byName, model.Name)
	}
	return ok
}

func (m *Models) Len() int {
	return m.models.Len()
}

func (m *Models) All() iter.Seq2[arena.Handle[Model], *Model] {
	return m.models.All()
}
