package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plus3/framecore/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`
log:
  level: debug
frames:
  in_flight: 2
simulation:
  tick: 10ms
extraction:
  concurrent: false
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, 2, cfg.Frames.InFlight)
	assert.Equal(t, 10*time.Millisecond, cfg.Simulation.Tick)
	assert.False(t, cfg.Extraction.Concurrent)
	assert.Equal(t, uint32(200), cfg.Animation.BlendTicks)
}

func TestLoadEmpty(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "frames:\n  inflight: 2\n", "inflight"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"no slots", "frames:\n  in_flight: 0\n", "frames.in_flight"},
		{"zero tick", "simulation:\n  tick: 0s\n", "simulation.tick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, config.ErrInvalid)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := config.Default()
	cfg.Frames.InFlight = 0
	cfg.Terrain.CellSize = -1

	err := cfg.Validate()
	assert.ErrorContains(t, err, "frames.in_flight")
	assert.ErrorContains(t, err, "terrain.cell_size")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("terrain:\n  nodes: 33\n"), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int32(33), cfg.Terrain.Nodes)

	_, err = config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
