package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/animate/engine/platform"
)

type WindowConfig struct {
	Name string `toml:"name"`
	// Window starting position, if applicable.
	X int `toml:"x"`
	Y int `toml:"y"`
	// Window starting size, if applicable.
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type AssetsConfig struct {
	Dir string `toml:"dir"`
	// ShaderDir is relative to Dir.
	ShaderDir      string `toml:"shader_dir"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
}

type ModuloConfig struct {
	Points int `toml:"points"`
	// Multiplier increase per second.
	Speed     float32 `toml:"speed"`
	Thickness float32 `toml:"thickness"`
}

type CatConfig struct {
	Grid         int    `toml:"grid"`
	Texture      string `toml:"texture"`
	ShuffleMoves int    `toml:"shuffle_moves"`
	Seed         uint64 `toml:"seed"`
}

type ApplicationConfig struct {
	Window      WindowConfig `toml:"window"`
	LogLevel    string       `toml:"log_level"`
	Validation  bool         `toml:"validation"`
	ClearColour [4]float32   `toml:"clear_colour"`
	Assets      AssetsConfig `toml:"assets"`
	// Animation picks the game the testbed runs: modulo or cat.
	Animation string       `toml:"animation"`
	Modulo    ModuloConfig `toml:"modulo"`
	Cat       CatConfig    `toml:"cat"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:   "Animate",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		LogLevel:    "info",
		ClearColour: [4]float32{0, 0, 0.2, 1},
		Assets: AssetsConfig{
			Dir:            "assets",
			ShaderDir:      "shaders",
			VertexShader:   "default.vert",
			FragmentShader: "default.frag",
		},
		Animation: "modulo",
		Modulo: ModuloConfig{
			Points:    200,
			Speed:     0.25,
			Thickness: 1,
		},
		Cat: CatConfig{
			Grid:         4,
			Texture:      "cat.png",
			ShuffleMoves: 100,
		},
	}
}

// LoadConfig decodes path over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*ApplicationConfig, error) {
	cfg := DefaultConfig()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("invalid configuration:\n%s", strict.String())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Assets.VertexShader == "" || c.Assets.FragmentShader == "" {
		errs = append(errs, fmt.Errorf("both shader ids are required"))
	}
	for i, v := range c.ClearColour {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear_colour[%d] = %g is outside [0, 1]", i, v))
		}
	}
	switch c.Animation {
	case "modulo":
		if c.Modulo.Points < 2 {
			errs = append(errs, fmt.Errorf("modulo.points must be at least 2"))
		}
	case "cat":
		if c.Cat.Grid < 2 {
			errs = append(errs, fmt.Errorf("cat.grid must be at least 2"))
		}
		if c.Cat.ShuffleMoves < 0 {
			errs = append(errs, fmt.Errorf("cat.shuffle_moves must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown animation %q", c.Animation))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

func (c *ApplicationConfig) platformWindow() platform.WindowConfig {
	return platform.WindowConfig{
		Name:   c.Window.Name,
		X:      c.Window.X,
		Y:      c.Window.Y,
		Width:  c.Window.Width,
		Height: c.Window.Height,
	}
}
