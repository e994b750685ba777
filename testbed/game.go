package testbed

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/animate/engine"
	"github.com/spaghettifunk/animate/engine/core"
)

// Animation is one of the scenes the testbed can run.
type Animation interface {
	Initialize(s *engine.Services) error
	Update(delta time.Duration) error
	OnResize(width, height uint32) error
	OnKey(key int, pressed bool)
	Shutdown() error
}

type TestGame struct {
	*engine.Game
	animation Animation
}

func NewAnimation(cfg *engine.ApplicationConfig) (Animation, error) {
	switch cfg.Animation {
	case "modulo":
		return NewModulo(cfg.Modulo), nil
	case "cat":
		return NewCat(cfg.Cat), nil
	default:
		return nil, fmt.Errorf("unknown animation %q", cfg.Animation)
	}
}

func NewTestGame(cfg *engine.ApplicationConfig) (*TestGame, error) {
	animation, err := NewAnimation(cfg)
	if err != nil {
		return nil, err
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State:             animation,
		},
		animation: animation,
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = animation.Update
	tg.FnOnResize = tg.OnResize
	tg.FnOnKey = animation.OnKey
	tg.FnShutdown = animation.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize(s *engine.Services) error {
	core.LogInfo("starting the %s animation", g.ApplicationConfig.Animation)
	return g.animation.Initialize(s)
}

func (g *TestGame) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	return g.animation.OnResize(width, height)
}
