package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/renderer/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	frames int
	pumps  int
	waits  int
	wakes  int
}

func (w *fakeWindow) PumpMessages() bool {
	w.pumps++
	return w.pumps <= w.frames
}

func (w *fakeWindow) WaitEvents() { w.waits++ }
func (w *fakeWindow) Wake()       { w.wakes++ }

type fakeRenderer struct {
	renders   int
	resizes   int
	reloads   []string
	renderErr error
	reloadErr error
}

func (r *fakeRenderer) RenderScene() error {
	r.renders++
	return r.renderErr
}

func (r *fakeRenderer) ReloadShader(id string) error {
	r.reloads = append(r.reloads, id)
	return r.reloadErr
}

func (r *fakeRenderer) Resized() { r.resizes++ }

type testEngine struct {
	*Engine
	window   *fakeWindow
	renderer *fakeRenderer
	shaders  chan string
	updates  []time.Duration
	resizes  [][2]uint32
	keys     []int
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{
		window:   &fakeWindow{},
		renderer: &fakeRenderer{},
		shaders:  make(chan string, 8),
	}
	game := &Game{
		ApplicationConfig: DefaultConfig(),
		FnUpdate: func(delta time.Duration) error {
			te.updates = append(te.updates, delta)
			return nil
		},
		FnOnResize: func(width, height uint32) error {
			te.resizes = append(te.resizes, [2]uint32{width, height})
			return nil
		},
		FnOnKey: func(key int, pressed bool) {
			if pressed {
				te.keys = append(te.keys, key)
			}
		},
	}
	te.Engine = &Engine{
		gameInstance: game,
		isRunning:    true,
		events:       core.NewEventBus(),
		window:       te.window,
		renderer:     te.renderer,
		shaderEvents: te.shaders,
		camera:       components.NewCamera(1280, 720),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        1280,
		height:       720,
	}
	te.registerEvents()
	te.clock.Start()
	return te
}

func TestTick(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.tick())
	require.NoError(t, e.tick())
	assert.Equal(t, 2, e.renderer.renders)
	assert.Len(t, e.updates, 2)
}

func TestTickSkipsBootingFrames(t *testing.T) {
	e := newTestEngine(t)
	e.renderer.renderErr = fmt.Errorf("acquire: %w", core.ErrSwapchainBooting)

	assert.NoError(t, e.tick())
	assert.Equal(t, 1, e.renderer.renders)
}

func TestTickReturnsFatalErrors(t *testing.T) {
	e := newTestEngine(t)
	e.renderer.renderErr = fmt.Errorf("present: %w", core.ErrPresentFailed)
	assert.ErrorIs(t, e.tick(), core.ErrPresentFailed)

	e = newTestEngine(t)
	boom := errors.New("boom")
	e.gameInstance.FnUpdate = func(time.Duration) error { return boom }
	assert.ErrorIs(t, e.tick(), boom)
	assert.Zero(t, e.renderer.renders, "nothing is drawn after a failed update")
}

func TestShaderReloadsAreDrainedOncePerFrame(t *testing.T) {
	e := newTestEngine(t)
	e.shaders <- "default.frag"
	e.shaders <- "default.vert"
	e.shaders <- "default.frag"

	require.NoError(t, e.tick())
	assert.Equal(t, []string{"default.frag", "default.vert"}, e.renderer.reloads)

	require.NoError(t, e.tick())
	assert.Len(t, e.renderer.reloads, 2)
}

func TestFailedShaderReloadKeepsRunning(t *testing.T) {
	e := newTestEngine(t)
	e.renderer.reloadErr = core.ErrInvalidShader
	e.shaders <- "default.frag"

	assert.NoError(t, e.tick())
	assert.Equal(t, 1, e.renderer.renders)
}

func TestClosedShaderChannel(t *testing.T) {
	e := newTestEngine(t)
	close(e.shaders)

	require.NoError(t, e.tick())
	assert.Nil(t, e.shaderEvents)
	require.NoError(t, e.tick())
}

func TestRunStopsWhenWindowCloses(t *testing.T) {
	e := newTestEngine(t)
	e.window.frames = 3

	require.NoError(t, e.Run())
	assert.Equal(t, 3, e.renderer.renders)
	assert.False(t, e.isRunning)
}

func TestRunReturnsFatalError(t *testing.T) {
	e := newTestEngine(t)
	e.window.frames = 10
	e.renderer.renderErr = core.ErrSubmitFailed

	assert.ErrorIs(t, e.Run(), core.ErrSubmitFailed)
	assert.Equal(t, 1, e.renderer.renders)
}

func TestQuitEvent(t *testing.T) {
	e := newTestEngine(t)
	e.window.frames = 10
	e.gameInstance.FnUpdate = func(time.Duration) error {
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return nil
	}

	require.NoError(t, e.Run())
	assert.Equal(t, 1, e.renderer.renders)
}

func TestStop(t *testing.T) {
	e := newTestEngine(t)
	e.window.frames = 10
	e.gameInstance.FnUpdate = func(time.Duration) error {
		e.Stop()
		return nil
	}

	require.NoError(t, e.Run())
	assert.Equal(t, 1, e.renderer.renders)
	assert.Equal(t, 1, e.window.wakes)
	assert.Equal(t, 1, e.window.pumps)
}

func TestResizeEvents(t *testing.T) {
	e := newTestEngine(t)

	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Width: 1280, Height: 720})
	assert.Zero(t, e.renderer.resizes, "same size is ignored")

	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Width: 0, Height: 0})
	assert.Equal(t, 1, e.renderer.resizes)
	assert.True(t, e.isSuspended)

	require.NoError(t, e.tick())
	assert.Equal(t, 1, e.window.waits)
	assert.Zero(t, e.renderer.renders, "minimised windows are not drawn")

	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Width: 1024, Height: 768})
	assert.False(t, e.isSuspended)
	assert.Equal(t, 2, e.renderer.resizes)
	assert.Equal(t, [][2]uint32{{1024, 768}}, e.resizes)
	assert.Equal(t, float32(1024), e.camera.Width)
	assert.Equal(t, float32(768), e.camera.Height)

	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)

	require.NoError(t, e.tick())
	assert.Equal(t, 1, e.renderer.renders)
}

func TestKeyEventsReachTheGame(t *testing.T) {
	e := newTestEngine(t)

	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Key: 32})
	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_KEY_RELEASED, Key: 32})
	assert.Equal(t, []int{32}, e.keys)
}
