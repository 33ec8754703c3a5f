package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/framecore/config"
	"github.com/plus3/framecore/engine"
	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/internal/scene"
	"github.com/plus3/framecore/logging"
	"github.com/plus3/framecore/perframe"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML engine configuration.")
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	frames := flag.Uint64("frames", 0, "Stop after this many presented frames. Zero runs for -duration.")
	props := flag.Int("props", 2000, "The number of static props to spawn.")
	characters := flag.Int("characters", 200, "The number of animated characters to spawn.")
	interval := flag.Float64("request-interval", 1, "Simulated seconds between sequence requests per character.")
	tick := flag.Duration("tick", 0, "Simulation step. Defaults to the configured tick.")
	sequential := flag.Bool("sequential", false, "Run extraction stages one at a time.")
	profileMode := flag.String("profile", "", "Write a cpu, mem or trace profile to the working directory.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if *tick > 0 {
		cfg.Simulation.Tick = *tick
	}
	if *frames > 0 {
		cfg.Frames.Max = *frames
	}
	if *sequential {
		cfg.Extraction.Concurrent = false
	}

	logger := logging.Must(cfg.Log)
	defer logger.Sync()

	if p := startProfile(*profileMode); p != nil {
		defer p.Stop()
	}

	logger.Info("starting stress test", zap.Duration("duration", *duration), zap.Int("props", *props), zap.Int("characters", *characters))

	sc, err := scene.Build(cfg, scene.Options{
		Props:           *props,
		Characters:      *characters,
		Seed:            uint64(time.Now().UnixNano()),
		RequestInterval: float32(*interval),
	}, logger)
	if err != nil {
		logger.Fatal("failed to build scene", zap.Error(err))
	}

	schedule, err := extract.NewSchedule(extract.DefaultStages(),
		extract.Concurrent(cfg.Extraction.Concurrent),
		extract.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to build extraction schedule", zap.Error(err))
	}

	ring, err := perframe.New(cfg.Frames.InFlight, func(i int) frameSlot { return frameSlot{index: i} })
	if err != nil {
		logger.Fatal("failed to create frame ring", zap.Error(err))
	}
	renderer := &headlessRenderer{}
	eng := engine.New(sc.World, schedule, ring, renderer,
		engine.WithLogger(logger),
		engine.WithTick(cfg.Simulation.Tick),
		engine.WithMaxFrames(cfg.Frames.Max))

	report := &Report{
		Duration:       *duration,
		Props:          *props,
		Characters:     *characters,
		Tick:           cfg.Simulation.Tick,
		InFlight:       cfg.Frames.InFlight,
		Concurrent:     cfg.Extraction.Concurrent,
		Layers:         schedule.Layers(),
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	startTime := time.Now()
	if err := eng.Run(ctx); err != nil {
		logger.Error("engine stopped", zap.Error(err))
	}
	report.TotalTime = time.Since(startTime)
	runtime.ReadMemStats(&report.MemStatsEnd)

	report.Engine = eng.Stats()
	report.FrameTime = renderer.frameTimes
	report.FrameTime.Finalize()
	report.Chunks = renderer.chunks
	report.Chunks.Finalize()
	report.Models = renderer.models
	report.Models.Finalize()
	report.Stages = schedule.Stats()
	report.Systems = sc.World.Scheduler.GetStats().Systems
	if sc.Director != nil {
		report.Requests, report.Rejected = sc.Director.Requests, sc.Director.Rejected
	}

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		logger.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

func startProfile(mode string) interface{ Stop() } {
	opts := []func(*profile.Profile){profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet}
	switch mode {
	case "cpu":
		return profile.Start(append(opts, profile.CPUProfile)...)
	case "mem":
		return profile.Start(append(opts, profile.MemProfileAllocs)...)
	case "trace":
		return profile.Start(append(opts, profile.TraceProfile)...)
	default:
		return nil
	}
}
