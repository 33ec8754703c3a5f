package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/framecore/config"
	"github.com/plus3/framecore/debugui"
	debugui_ebiten "github.com/plus3/framecore/debugui/ebiten"
	"github.com/plus3/framecore/engine"
	"github.com/plus3/framecore/extract"
	"github.com/plus3/framecore/internal/scene"
	"github.com/plus3/framecore/logging"
	"github.com/plus3/framecore/perframe"
	"github.com/plus3/framecore/sim"
	"go.uber.org/zap"
)

// Game steps the engine in Update and presents in Draw, so both run on ebiten's goroutine.
type Game struct {
	engine   *engine.Engine[viewSlot]
	world    *sim.World
	renderer *wireRenderer
	controls *cameraControls
	backend  debugui_ebiten.ImguiBackend
	tick     time.Duration
	logger   *zap.Logger
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if !g.engine.Ready() {
		return nil
	}

	g.backend.BeginFrame()
	defer g.backend.EndFrame()

	dt := g.tick.Seconds()
	g.controls.Update(float32(dt))
	err := g.engine.Step(context.Background(), dt)
	if errors.Is(err, engine.ErrFrameSkipped) {
		g.logger.Debug("frame skipped", zap.Error(err))
		return nil
	}
	return err
}

func (g *Game) Draw(screen *ebiten.Image) {
	if _, _, err := g.engine.TryPresent(); err != nil {
		g.logger.Error("present failed", zap.Error(err))
	}
	if img := g.renderer.Latest(); img != nil {
		screen.DrawImage(img, nil)
	}
	g.backend.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.backend.Layout(outsideWidth, outsideHeight)
	g.renderer.Resize(outsideWidth, outsideHeight)
	g.world.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML engine configuration.")
	props := flag.Int("props", 500, "The number of static props to spawn.")
	characters := flag.Int("characters", 50, "The number of animated characters to spawn.")
	seed := flag.Uint64("seed", 1, "Scene generation seed.")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	logger := logging.Must(cfg.Log)
	defer logger.Sync()

	backend := debugui_ebiten.NewImguiBackend("framecore viewer", cfg.Simulation.Width, cfg.Simulation.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(int(time.Second / cfg.Simulation.Tick))

	sc, err := scene.Build(cfg, scene.Options{
		Props:           *props,
		Characters:      *characters,
		Seed:            *seed,
		RequestInterval: 2,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build scene", zap.Error(err))
	}
	w := sc.World
	w.Gizmos().ChunkBounds = true

	schedule, err := extract.NewSchedule(extract.DefaultStages(),
		extract.Concurrent(cfg.Extraction.Concurrent),
		extract.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to build extraction schedule", zap.Error(err))
	}
	ring, err := perframe.New(cfg.Frames.InFlight, func(int) viewSlot { return viewSlot{} })
	if err != nil {
		logger.Fatal("failed to create frame ring", zap.Error(err))
	}

	renderer := newWireRenderer(w.Terrain().Terrain, w.Models)
	renderer.Resize(cfg.Simulation.Width, cfg.Simulation.Height)
	eng := engine.New(w, schedule, ring, renderer, engine.WithLogger(logger), engine.WithTick(cfg.Simulation.Tick))

	input := debugui.Install(w,
		debugui.NewPipelinePanel(w, schedule, eng.Stats, 240),
		debugui.NewEntityPanel(w, 100),
		debugui.NewMotionPanel(w),
	)

	game := &Game{
		engine:   eng,
		world:    w,
		renderer: renderer,
		controls: &cameraControls{world: w, camera: sc.Camera, imgui: input},
		backend:  backend,
		tick:     cfg.Simulation.Tick,
		logger:   logger,
	}
	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("viewer stopped", zap.Error(err))
	}
}
