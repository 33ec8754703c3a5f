// Package scene generates the test level the commands run: a rolling height map, props,
// animated characters, a camera and a day/night cycle.
package scene

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/assets"
	"github.com/plus3/framecore/config"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/mathx"
	"github.com/plus3/framecore/sim"
	"github.com/plus3/framecore/terrain"
	"go.uber.org/zap"
)

// Options sizes the generated population.
type Options struct {
	Props      int
	Characters int
	Seed       uint64
	// RequestInterval is how often, in simulated seconds, the director requests new sequences.
	// Zero disables the director.
	RequestInterval float32
}

// Scene is a populated world.
type Scene struct {
	World      *sim.World
	Camera     ecs.EntityId
	Props      []ecs.EntityId
	Characters []ecs.EntityId
	Director   *DirectorSystem
}

// HeightMap generates rolling hills of the configured size.
func HeightMap(cfg config.Terrain) (*terrain.HeightMap, error) {
	elevations := make([]float32, 0, int(cfg.Nodes)*int(cfg.Nodes))
	for y := range cfg.Nodes {
		for x := range cfg.Nodes {
			fx, fy := float64(x)*0.07, float64(y)*0.05
			h := math.Sin(fx)*math.Cos(fy)*0.5 + 0.5
			elevations = append(elevations, cfg.Amplitude*float32(h))
		}
	}
	return terrain.NewHeightMap(cfg.Nodes, cfg.Nodes, cfg.CellSize, elevations)
}

// DayNight returns four lighting keys: dawn, noon, dusk and night.
func DayNight() []sim.Lighting {
	return []sim.Lighting{
		{SunDir: mgl32.Vec3{1, 0, 0.2}.Normalize(), SunColor: mgl32.Vec3{1, 0.7, 0.5}, FogColor: mgl32.Vec3{0.7, 0.6, 0.6}, FogDistance: 300, FogNearFraction: 0.4},
		{SunDir: mgl32.Vec3{0, 0.2, 1}.Normalize(), SunColor: mgl32.Vec3{1, 1, 0.95}, FogColor: mgl32.Vec3{0.7, 0.8, 0.9}, FogDistance: 500, FogNearFraction: 0.6},
		{SunDir: mgl32.Vec3{-1, 0, 0.2}.Normalize(), SunColor: mgl32.Vec3{1, 0.6, 0.4}, FogColor: mgl32.Vec3{0.6, 0.5, 0.5}, FogDistance: 300, FogNearFraction: 0.4},
		{SunDir: mgl32.Vec3{0, -0.2, -1}.Normalize(), SunColor: mgl32.Vec3{0.2, 0.2, 0.35}, FogColor: mgl32.Vec3{0.1, 0.1, 0.15}, FogDistance: 150, FogNearFraction: 0.2},
	}
}

// Build creates and populates a world from cfg.
func Build(cfg config.Config, opts Options, logger *zap.Logger) (*Scene, error) {
	hm, err := HeightMap(cfg.Terrain)
	if err != nil {
		return nil, err
	}
	terr, err := terrain.New(hm)
	if err != nil {
		return nil, err
	}
	library, err := Library(cfg.Animation, logger)
	if err != nil {
		return nil, err
	}
	skel, err := Skeleton()
	if err != nil {
		return nil, err
	}

	models := assets.NewModels()
	crate, err := models.Add(assets.Model{
		Name:   "crate",
		Bounds: mathx.BoundingBox{Min: mgl32.Vec3{-0.5, -0.5, 0}, Max: mgl32.Vec3{0.5, 0.5, 1}},
	})
	if err != nil {
		return nil, err
	}
	hero, err := models.Add(assets.Model{
		Name:     "hero",
		Bounds:   mathx.BoundingBox{Min: mgl32.Vec3{-0.4, -0.4, 0}, Max: mgl32.Vec3{0.4, 0.4, 1.8}},
		Skeleton: skel,
	})
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	sc := &Scene{}

	worldOpts := []sim.Option{
		sim.WithLogger(logger),
		sim.WithSlowSystemThreshold(cfg.Simulation.SlowSystem),
		sim.WithSequencer(library),
		sim.WithModels(models),
		sim.WithTerrain(terr),
		sim.WithDayNight(DayNight(), cfg.Simulation.TimeOfDayRate),
		sim.WithViewport(cfg.Simulation.Width, cfg.Simulation.Height),
	}
	if opts.RequestInterval > 0 {
		sc.Director = &DirectorSystem{
			Sequences: Sequences,
			Interval:  opts.RequestInterval,
			Rand:      rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
			Logger:    logger,
		}
		worldOpts = append(worldOpts, sim.WithSystems(sc.Director))
	}
	w := sim.NewWorld(worldOpts...)
	sc.World = w

	extent := float32(hm.Width-1) * hm.CellSize
	for range opts.Props {
		pos, normal := hm.PositionAndNormal(rng.Float32()*extent, rng.Float32()*extent)
		tilt := mgl32.QuatBetweenVectors(sim.Up, normal)
		spin := mgl32.QuatRotate(rng.Float32()*2*math.Pi, sim.Up)
		sc.Props = append(sc.Props, w.SpawnModel(crate, mathx.NewTransform(pos, tilt.Mul(spin))))
	}
	for range opts.Characters {
		pos, _ := hm.PositionAndNormal(rng.Float32()*extent, rng.Float32()*extent)
		facing := mgl32.QuatRotate(rng.Float32()*2*math.Pi, sim.Up)
		sc.Characters = append(sc.Characters, w.SpawnAnimated(hero, mathx.NewTransform(pos, facing), skel, Standing))
	}

	sc.Camera = w.SpawnCamera(sim.Camera{
		Position: mgl32.Vec3{-extent * 0.1, -extent * 0.1, cfg.Terrain.Amplitude*2 + extent*0.25},
		Yaw:      45,
		Pitch:    -30,
		FovY:     60,
		Near:     0.5,
		Far:      extent * 1.5,
	}, true)

	logger.Info("scene built",
		zap.String("terrain", fmt.Sprintf("%dx%d chunks", terr.ChunkDim.X, terr.ChunkDim.Y)),
		zap.Int("props", len(sc.Props)),
		zap.Int("characters", len(sc.Characters)),
		zap.Int("motions", library.MotionCount()))
	return sc, nil
}
