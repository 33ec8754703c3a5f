package debugui

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/framecore/engine"
	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/sim"
)

// PipelinePanel shows step timings, system and stage statistics and the culling counters.
type PipelinePanel struct {
	world    *sim.World
	schedule *extract.Schedule
	engine   func() engine.Stats

	steps    *History
	lastStep time.Duration
	lastSeen time.Time
}

// NewPipelinePanel returns a panel for w. schedule and stats may be nil when the world is
// stepped without an extraction schedule or engine.
func NewPipelinePanel(w *sim.World, schedule *extract.Schedule, stats func() engine.Stats, history int) *PipelinePanel {
	return &PipelinePanel{world: w, schedule: schedule, engine: stats, steps: NewHistory(history)}
}

// Record pushes one frame time into the graph. The panel records wall time between renders
// itself; callers with a more accurate clock can use this instead.
func (p *PipelinePanel) Record(d time.Duration) {
	p.lastStep = d
	p.steps.Push(float32(d.Seconds() * 1000))
}

func (p *PipelinePanel) Render() {
	now := time.Now()
	if !p.lastSeen.IsZero() {
		p.Record(now.Sub(p.lastSeen))
	}
	p.lastSeen = now

	if !imgui.BeginV("Pipeline", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	clock := p.world.Clock()
	storage := p.world.Storage.CollectStats()
	imgui.Text(fmt.Sprintf("Sim time: %.2fs (%d steps)", clock.SimTime, clock.Steps))
	imgui.Text(fmt.Sprintf("Time of day: %.2f", p.world.TimeOfDay().Value))
	imgui.Text(fmt.Sprintf("Entities: %d in %d archetypes, %d singletons",
		storage.TotalEntityCount, storage.ArchetypeCount, storage.SingletonCount))

	avg := p.steps.Average()
	if avg > 0 {
		imgui.Text(fmt.Sprintf("Avg frame: %.2f ms (%.0f FPS)", avg, 1000/avg))
	}
	imgui.PlotLinesFloatPtr("##frametime", &p.steps.Raw()[0], int32(len(p.steps.Raw())))

	if p.engine != nil {
		s := p.engine()
		imgui.Separator()
		imgui.Text(fmt.Sprintf("Frames: %d published, %d presented, %d skipped", s.Published, s.Presented, s.Skipped))
	}

	visible := p.world.VisibleChunks()
	imgui.Text(fmt.Sprintf("Chunks: %d visible, %d tested, %d rejected, %d accepted",
		visible.Stats.Visible, visible.Stats.Tested, visible.Stats.Rejected, visible.Stats.Accepted))
	imgui.Text(fmt.Sprintf("Since start: %d visible, %d tested, %d rejected, %d accepted",
		visible.Total.Visible, visible.Total.Tested, visible.Total.Rejected, visible.Total.Accepted))

	if imgui.TreeNodeStr("Systems") {
		p.renderSystems()
		imgui.TreePop()
	}
	if p.schedule != nil && imgui.TreeNodeStr("Extract stages") {
		p.renderStages()
		imgui.TreePop()
	}

	imgui.End()
}

func (p *PipelinePanel) renderSystems() {
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if !imgui.BeginTableV("SystemTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		return
	}
	imgui.TableSetupColumn("System")
	imgui.TableSetupColumn("Runs")
	imgui.TableSetupColumn("Last")
	imgui.TableSetupColumn("Avg")
	imgui.TableHeadersRow()
	for _, s := range p.world.Scheduler.GetStats().Systems {
		imgui.TableNextRow()
		imgui.TableNextColumn()
		imgui.Text(s.Name)
		imgui.TableNextColumn()
		imgui.Text(fmt.Sprintf("%d", s.ExecutionCount))
		imgui.TableNextColumn()
		imgui.Text(s.LastDuration.String())
		imgui.TableNextColumn()
		imgui.Text(s.AvgDuration.String())
	}
	imgui.EndTable()
}

func (p *PipelinePanel) renderStages() {
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if !imgui.BeginTableV("StageTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		return
	}
	imgui.TableSetupColumn("Stage")
	imgui.TableSetupColumn("Layer")
	imgui.TableSetupColumn("Last")
	imgui.TableSetupColumn("Avg")
	imgui.TableSetupColumn("Max")
	imgui.TableHeadersRow()
	for _, s := range stageRows(p.schedule.Stats()) {
		imgui.TableNextRow()
		imgui.TableNextColumn()
		imgui.Text(s.Name)
		imgui.TableNextColumn()
		imgui.Text(fmt.Sprintf("%d", s.Layer))
		imgui.TableNextColumn()
		imgui.Text(s.Last.String())
		imgui.TableNextColumn()
		imgui.Text(s.Avg().String())
		imgui.TableNextColumn()
		imgui.Text(s.Max.String())
	}
	imgui.EndTable()
}

// stageRows orders stage statistics by layer, then name.
func stageRows(stats []extract.StageStats) []extract.StageStats {
	rows := slices.Clone(stats)
	slices.SortStableFunc(rows, func(a, b extract.StageStats) int {
		return cmp.Or(cmp.Compare(a.Layer, b.Layer), cmp.Compare(a.Name, b.Name))
	})
	return rows
}
