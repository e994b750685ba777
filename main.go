/*
Animate opens a window and plays one of the testbed animations with the
engine package. The animation and window are chosen in animate.toml.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/animate/engine"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/testbed"
)

// loadGame reads the configuration, applies the animation override and
// builds the testbed game.
func loadGame(configPath, animation string) (*testbed.TestGame, error) {
	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
	}
	if animation != "" {
		cfg.Animation = animation
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid animation: %w", err)
		}
	}
	return testbed.NewTestGame(cfg)
}

func main() {
	configPath := flag.String("config", "animate.toml", "path to the configuration file")
	animation := flag.String("animation", "", "overrides the animation from the configuration file")
	flag.Parse()

	tb, err := loadGame(*configPath, *animation)
	if err != nil {
		core.LogFatal("%s", err)
	}

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// the render thread owns every engine resource, so a signal only asks it to stop
	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
