package engine

import (
	"time"

	"github.com/spaghettifunk/animate/engine/assets"
	"github.com/spaghettifunk/animate/engine/renderer/components"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnOnKey           OnKey
	FnShutdown        Shutdown
}

// Services is what the engine hands a game once the renderer is up.
type Services struct {
	Config   *ApplicationConfig
	Context  *vulkan.Context
	Pipeline *vulkan.Pipeline
	Assets   *assets.AssetManager
	Camera   *components.Camera
}

type Initialize func(s *Services) error
type Update func(delta time.Duration) error
type OnResize func(width uint32, height uint32) error
type OnKey func(key int, pressed bool)
type Shutdown func() error
