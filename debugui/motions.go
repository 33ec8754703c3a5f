package debugui

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/sequencer"
	"github.com/plus3/framecore/sim"
	"go.uber.org/zap"
)

// MotionRow summarises one animated entity's controller.
type MotionRow struct {
	ID       ecs.EntityId
	State    sequencer.State
	Target   sequencer.State
	Active   uint32
	Ticks    int32
	Pending  int
	Blending bool
	Rejected uint32
}

// MotionPanel shows every motion controller and queues sequences on the chosen one.
type MotionPanel struct {
	world    *sim.World
	animated *ecs.View[struct{ *sim.Animated }]
	chosen   ecs.EntityId
	speed    float32
	clear    bool
	lastErr  error
}

func NewMotionPanel(w *sim.World) *MotionPanel {
	return &MotionPanel{
		world:    w,
		animated: ecs.NewView[struct{ *sim.Animated }](w.Storage),
		speed:    1,
	}
}

func (p *MotionPanel) Render() {
	if !imgui.BeginV("Motions", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}
	defer imgui.End()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV("MotionTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("State")
		imgui.TableSetupColumn("Active")
		imgui.TableSetupColumn("Queued")
		imgui.TableSetupColumn("Rejected")
		imgui.TableHeadersRow()
		for _, r := range motionRows(p.animated) {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			if imgui.SelectableBoolV(fmt.Sprintf("%d", r.ID.Index()), p.chosen == r.ID, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				p.chosen = r.ID
			}
			imgui.TableNextColumn()
			if r.State == r.Target {
				imgui.Text(r.State.String())
			} else {
				imgui.Text(fmt.Sprintf("%s -> %s", r.State, r.Target))
			}
			imgui.TableNextColumn()
			if r.Active != 0 {
				imgui.Text(fmt.Sprintf("%08x @%d", r.Active, r.Ticks))
			}
			imgui.TableNextColumn()
			text := fmt.Sprintf("%d", r.Pending)
			if r.Blending {
				text += " (blending)"
			}
			imgui.Text(text)
			imgui.TableNextColumn()
			if r.Rejected != 0 {
				imgui.Text(fmt.Sprintf("%08x", r.Rejected))
			}
		}
		imgui.EndTable()
	}

	if p.chosen == 0 || p.world.Sequencer == nil {
		return
	}

	imgui.Separator()
	imgui.SetNextItemWidth(100)
	imgui.InputFloat("Speed", &p.speed)
	imgui.SameLine()
	imgui.Checkbox("Clear queue", &p.clear)

	for _, seq := range sequenceList(p.world.Sequencer) {
		if imgui.Button(seq.Name) {
			req := sequencer.NewRequest(seq.Name)
			req.PlaybackSpeed = p.speed
			req.ForceClearQueue = p.clear
			p.lastErr = p.world.Request(p.chosen, req)
			if p.lastErr != nil {
				p.world.Logger().Debug("sequence request failed", zap.String("sequence", seq.Name), zap.Error(p.lastErr))
			}
		}
	}
	if p.lastErr != nil {
		imgui.Text(p.lastErr.Error())
	}
}

func motionRows(view *ecs.View[struct{ *sim.Animated }]) []MotionRow {
	var rows []MotionRow
	for id, a := range view.Iter() {
		ctrl := a.Controller
		if ctrl == nil {
			continue
		}
		row := MotionRow{
			ID:       id,
			State:    ctrl.State(),
			Target:   ctrl.TargetState(),
			Pending:  ctrl.Pending(),
			Blending: ctrl.Blending(),
		}
		if info, ticks, ok := ctrl.Active(); ok {
			row.Active, row.Ticks = info.Hash, ticks
		}
		if hash, ok := ctrl.LastRejected(); ok {
			row.Rejected = hash
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b MotionRow) int { return cmp.Compare(a.ID.Index(), b.ID.Index()) })
	return rows
}

// sequenceList returns the requestable sequences sorted by name.
func sequenceList(s *sequencer.Sequencer) []*sequencer.Sequence {
	var out []*sequencer.Sequence
	for _, seq := range s.Sequences() {
		out = append(out, seq)
	}
	slices.SortFunc(out, func(a, b *sequencer.Sequence) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
