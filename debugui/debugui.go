// Package debugui draws Dear ImGui panels for the simulation world: entities, motion controllers
// and pipeline timings. Panels are ecs entities rendered by ImguiSystem after every step.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/sim"
)

// ImguiItem is a component that holds a Dear ImGui render function.
type ImguiItem struct {
	Render func()
}

// ImguiInputState tracks whether ImGui wants the mouse or keyboard this frame. Picking and
// camera controls check it before consuming input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiSystem updates ImguiInputState and defers every ImguiItem's render function until the
// step's commands are flushed, after all other systems have run.
type ImguiSystem struct {
	Items      ecs.Query[struct{ *ImguiItem }]
	InputState ecs.Singleton[ImguiInputState]
}

func (i *ImguiSystem) Execute(frame *ecs.UpdateFrame) {
	io := imgui.CurrentIO()
	state := i.InputState.Get()
	state.WantCaptureMouse = io.WantCaptureMouse()
	state.WantCaptureKeyboard = io.WantCaptureKeyboard()

	for item := range i.Items.Values() {
		if item.Render != nil {
			frame.Commands.Defer(item.Render)
		}
	}
}

// Panel is a window drawn once per step.
type Panel interface {
	Render()
}

// Install registers the debug UI components and system on w and spawns one item per panel.
// It must be called from the simulation goroutine before the first step that should show them.
func Install(w *sim.World, panels ...Panel) *ecs.Singleton[ImguiInputState] {
	ecs.RegisterComponent[ImguiItem](w.Registry)
	ecs.RegisterComponent[ImguiInputState](w.Registry)
	input := ecs.NewSingleton[ImguiInputState](w.Storage)
	w.Scheduler.Register(&ImguiSystem{})
	for _, p := range panels {
		w.Storage.Spawn(ImguiItem{Render: p.Render})
	}
	return input
}
