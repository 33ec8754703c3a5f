package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/engine"
	"github.com/plus3/framecore/extract"
)

type Report struct {
	// Configuration
	Duration   time.Duration
	Props      int
	Characters int
	Tick       time.Duration
	InFlight   int
	Concurrent bool
	Layers     [][]string

	// Results
	TotalTime      time.Duration
	Engine         engine.Stats
	FrameTime      Stats[time.Duration]
	Chunks         Stats[int]
	Models         Stats[int]
	Stages         []extract.StageStats
	Systems        []ecs.SystemStats
	Requests       int
	Rejected       int
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type number interface {
	~int | ~int64
}

// Stats accumulates a running min, max and mean.
type Stats[T number] struct {
	Min   T
	Max   T
	Avg   T
	Count int
	total T
}

func (s *Stats[T]) Add(v T) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.total += v
	s.Count++
}

func (s *Stats[T]) Finalize() {
	if s.Count == 0 {
		return
	}
	s.Avg = s.total / T(s.Count)
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Frame Pipeline Stress Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Props:** {{.Props}}
- **Characters:** {{.Characters}}
- **Tick:** {{.Tick}}
- **Frames In Flight:** {{.InFlight}}
- **Concurrent Extraction:** {{.Concurrent}}
- **Stage Layers:** {{range $i, $l := .Layers}}{{if $i}} -> {{end}}{{$l}}{{end}}

## Frames
- **Total Test Time:** {{.TotalTime}}
- **Steps:** {{.Engine.Steps}}
- **Published:** {{.Engine.Published}}
- **Presented:** {{.Engine.Presented}}
- **Skipped:** {{.Engine.Skipped}}
- **Frame Time:** avg {{.FrameTime.Avg}}, min {{.FrameTime.Min}}, max {{.FrameTime.Max}}
- **Visible Chunks:** avg {{.Chunks.Avg}}, min {{.Chunks.Min}}, max {{.Chunks.Max}}
- **Visible Models:** avg {{.Models.Avg}}, min {{.Models.Min}}, max {{.Models.Max}}
- **Sequence Requests:** {{.Requests}} ({{.Rejected}} rejected)

## Extraction Stages
| stage | layer | runs | avg | max |
|---|---|---|---|---|
{{range .Stages}}| {{.Name}} | {{.Layer}} | {{.Runs}} | {{.Avg}} | {{.Max}} |
{{end}}
## Simulation Systems
| system | runs | avg | max |
|---|---|---|---|
{{range .Systems}}| {{.Name}} | {{.ExecutionCount}} | {{.AvgDuration}} | {{.MaxDuration}} |
{{end}}
## Memory Usage (MiB)
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} (start) -> {{mb .MemStatsEnd.HeapAlloc}} (end)
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} (start) -> {{mb .MemStatsEnd.TotalAlloc}} (end) -> delta: {{mb (bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc)}}
- Sys Memory:     {{mb .MemStatsStart.Sys}} (start) -> {{mb .MemStatsEnd.Sys}} (end)
- Num GC:         {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{bsub .MemStatsEnd.PauseTotalNs .MemStatsStart.PauseTotalNs | ns}}
{{end}}`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns int64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, r)
}
