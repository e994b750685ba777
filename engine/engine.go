package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/animate/engine/assets"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/platform"
	"github.com/spaghettifunk/animate/engine/renderer/components"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type window interface {
	PumpMessages() bool
	WaitEvents()
	Wake()
}

type frameRenderer interface {
	RenderScene() error
	ReloadShader(id string) error
	Resized()
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	// set from other goroutines, the only engine state that may be
	stopRequested atomic.Bool

	events       *core.EventBus
	platform     *platform.Platform
	window       window
	assetManager *assets.AssetManager
	shaderEvents <-chan string
	context      *vulkan.Context
	renderer     frameRenderer
	pipeline     *vulkan.Pipeline
	camera       *components.Camera

	width    uint32
	height   uint32
	clock    *core.Clock
	metrics  *core.FrameMetrics
	lastTime time.Duration
	// elapsed time of the last frame rate report
	lastReport time.Duration
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		return nil, fmt.Errorf("game has no application config")
	}
	events := core.NewEventBus()

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	p := platform.New(events)
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		events:       events,
		platform:     p,
		window:       p,
		assetManager: am,
		shaderEvents: am.Changed(),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		isRunning:    true,
		width:        uint32(g.ApplicationConfig.Window.Width),
		height:       uint32(g.ApplicationConfig.Window.Height),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	e.registerEvents()

	if err := e.platform.Startup(cfg.platformWindow()); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(cfg.Assets.Dir, cfg.Assets.ShaderDir); err != nil {
		return err
	}

	ctx, err := vulkan.Initialise(e.platform, e.assetManager, vulkan.Options{
		ApplicationName: cfg.Window.Name,
		Validation:      cfg.Validation,
		ClearColour:     cfg.ClearColour,
	})
	if err != nil {
		return err
	}
	e.context = ctx
	e.renderer = ctx

	pipeline, err := ctx.CreatePipeline(cfg.Assets.FragmentShader, cfg.Assets.VertexShader)
	if err != nil {
		return err
	}
	e.pipeline = pipeline

	extent := ctx.Extent()
	e.width, e.height = extent.Width, extent.Height
	e.camera = components.NewCamera(float32(e.width), float32(e.height))
	e.updateMatrices()

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(&Services{
			Config:   cfg,
			Context:  ctx,
			Pipeline: pipeline,
			Assets:   e.assetManager,
			Camera:   e.camera,
		}); err != nil {
			return err
		}
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) registerEvents() {
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if e.stopRequested.Load() {
			core.LogInfo("Stop requested, shutting down.")
			e.isRunning = false
			break
		}
		if !e.window.PumpMessages() {
			e.isRunning = false
			break
		}
		if err := e.tick(); err != nil {
			return err
		}
	}
	return nil
}

// Stop asks Run to return after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.stopRequested.Store(true)
	e.window.Wake()
}

// tick runs one frame. Only errors the engine cannot recover from are returned.
func (e *Engine) tick() error {
	if e.isSuspended {
		e.window.WaitEvents()
		return nil
	}

	e.reloadShaders()

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update failed: %w", err)
		}
	}

	if err := e.renderer.RenderScene(); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			core.LogDebug("frame skipped: %s", err)
			return nil
		}
		return err
	}

	e.metrics.Update(delta)
	if currentTime-e.lastReport >= time.Second {
		core.LogDebug("%d fps, %s average frame time", e.metrics.FPS(), e.metrics.FrameTime())
		e.lastReport = currentTime
	}
	return nil
}

// reloadShaders drains the asset watcher. A shader that fails to rebuild is
// logged and the previous pipeline stays in use until the next save.
func (e *Engine) reloadShaders() {
	var pending []string
drain:
	for e.shaderEvents != nil {
		select {
		case id, ok := <-e.shaderEvents:
			if !ok {
				e.shaderEvents = nil
				break drain
			}
			if !slices.Contains(pending, id) {
				pending = append(pending, id)
			}
		default:
			break drain
		}
	}
	for _, id := range pending {
		if err := e.renderer.ReloadShader(id); err != nil {
			core.LogError("failed to reload shader '%s': %s", id, err)
		}
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	e.assetManager.Shutdown()
	e.events.Shutdown()
	e.platform.Shutdown()
	return errors.Join(errs...)
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) updateMatrices() {
	if e.pipeline == nil {
		return
	}
	e.pipeline.SetMatrices(e.camera.View(), e.camera.Projection())
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	pressed := context.Type == core.EVENT_CODE_KEY_PRESSED
	if pressed {
		core.LogDebug("key %d pressed", context.Key)
	}
	if e.gameInstance.FnOnKey != nil {
		e.gameInstance.FnOnKey(context.Key, pressed)
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	width, height := context.Width, context.Height
	if width == e.width && height == e.height {
		return true
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	e.renderer.Resized()
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if e.camera != nil {
		e.camera.SetViewport(float32(width), float32(height))
		e.updateMatrices()
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize failed: %s", err)
		}
	}
	return true
}
