package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type WindowConfig struct {
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Platform owns the glfw window and translates its callbacks into engine
// events. It satisfies the window contract of the Vulkan context.
type Platform struct {
	Window *glfw.Window
	events *core.EventBus
}

func New(events *core.EventBus) *Platform {
	return &Platform{events: events}
}

func (p *Platform) Startup(cfg WindowConfig) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Name, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(cfg.X, cfg.Y)
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
}

// PumpMessages processes pending window events. It returns false once the
// window has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitEvents blocks until the window receives an event. Used while minimised.
func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

// Wake interrupts WaitEvents. Safe to call from any goroutine.
func (p *Platform) Wake() {
	glfw.PostEmptyEvent()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

func (p *Platform) FramebufferSize() (int, int) {
	return p.Window.GetFramebufferSize()
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	for _, e := range keyEvents(key, action) {
		p.events.Fire(e)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Fire(resizeEvent(width, height))
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

// keyEvents maps a glfw key action to engine events. Escape also requests quit.
func keyEvents(key glfw.Key, action glfw.Action) []core.EventContext {
	switch action {
	case glfw.Press:
		events := []core.EventContext{{Type: core.EVENT_CODE_KEY_PRESSED, Key: int(key)}}
		if key == glfw.KeyEscape {
			events = append(events, core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		}
		return events
	case glfw.Release:
		return []core.EventContext{{Type: core.EVENT_CODE_KEY_RELEASED, Key: int(key)}}
	default:
		return nil
	}
}

func resizeEvent(width, height int) core.EventContext {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return core.EventContext{Type: core.EVENT_CODE_RESIZED, Width: uint32(width), Height: uint32(height)}
}
