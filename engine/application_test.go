package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "default.vert", cfg.Assets.VertexShader)
	assert.Equal(t, "modulo", cfg.Animation)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
log_level = "debug"
validation = true
clear_colour = [0.1, 0.2, 0.3, 1.0]
animation = "cat"

[window]
name = "Cat"
width = 800
height = 800

[cat]
grid = 3
shuffle_moves = 10
seed = 42
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Validation)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, cfg.ClearColour)
	assert.Equal(t, "Cat", cfg.Window.Name)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 100, cfg.Window.X, "unset keys keep their default")
	assert.Equal(t, 3, cfg.Cat.Grid)
	assert.Equal(t, "cat.png", cfg.Cat.Texture)
	assert.Equal(t, uint64(42), cfg.Cat.Seed)
	assert.Equal(t, 200, cfg.Modulo.Points)
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"unknown key", "[window]\ntitle = \"x\"\n", "title"},
		{"bad syntax", "animation = \n", ""},
		{"unknown animation", "animation = \"snake\"\n", "unknown animation"},
		{"zero window", "[window]\nwidth = 0\n", "window size"},
		{"log level", "log_level = \"loud\"\n", "log_level"},
		{"clear colour", "clear_colour = [2.0, 0.0, 0.0, 1.0]\n", "clear_colour[0]"},
		{"tiny grid", "animation = \"cat\"\n[cat]\ngrid = 1\n", "cat.grid"},
		{"too few points", "[modulo]\npoints = 1\n", "modulo.points"},
		{"missing shader", "[assets]\nvertex_shader = \"\"\n", "shader ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.toml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animate.toml")
	require.NoError(t, os.WriteFile(path, []byte("animation = \"modulo\"\n[modulo]\npoints = 10\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Modulo.Points)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShippedConfigParses(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "animate.toml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
