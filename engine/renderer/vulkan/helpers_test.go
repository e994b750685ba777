package vulkan_test

import (
	"fmt"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/require"
)

type testWindow struct {
	width, height int
}

func (w *testWindow) RequiredInstanceExtensions() []string { return nil }

func (w *testWindow) CreateSurface(vk.Instance) (vk.Surface, error) {
	return vk.NullSurface, fmt.Errorf("not a real window")
}

func (w *testWindow) FramebufferSize() (int, int) { return w.width, w.height }

// testShaders serves a minimal SPIR-V header for every known id.
type testShaders struct {
	missing map[string]bool
	loads   map[string]int
}

func newTestShaders() *testShaders {
	return &testShaders{missing: map[string]bool{}, loads: map[string]int{}}
}

func (s *testShaders) LoadShader(id string) ([]uint32, error) {
	s.loads[id]++
	if s.missing[id] {
		return nil, fmt.Errorf("shader '%s' not found", id)
	}
	return []uint32{0x07230203, 0x00010000, 0, 1, 0}, nil
}

type testDrawable struct {
	buffers  []*vulkan.Buffer
	model    math.Mat4
	pipeline *vulkan.Pipeline
}

func (d *testDrawable) Buffers() []*vulkan.Buffer  { return d.buffers }
func (d *testDrawable) ModelMatrix() math.Mat4     { return d.model }
func (d *testDrawable) Pipeline() *vulkan.Pipeline { return d.pipeline }

type fixture struct {
	driver  *vulkantest.Driver
	window  *testWindow
	shaders *testShaders
	ctx     *vulkan.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		driver:  vulkantest.New(),
		window:  &testWindow{width: 800, height: 600},
		shaders: newTestShaders(),
	}
	ctx, err := vulkan.NewContext(f.driver, f.window, f.shaders, vulkan.Options{ClearColour: [4]float32{0, 0, 0.2, 1}})
	require.NoError(t, err)
	f.ctx = ctx
	return f
}

func (f *fixture) pipeline(t *testing.T) *vulkan.Pipeline {
	t.Helper()
	p, err := f.ctx.CreatePipeline("default.frag", "default.vert")
	require.NoError(t, err)
	return p
}

// quad builds a drawable with a four vertex buffer and a six index buffer.
func (f *fixture) quad(t *testing.T, p *vulkan.Pipeline, model math.Mat4) *testDrawable {
	t.Helper()
	vertices, err := f.ctx.CreateBuffer(4*math.VertexStride, vulkan.BufferUsageVertex, vulkan.MemoryHostVisible)
	require.NoError(t, err)
	indices, err := f.ctx.CreateBuffer(6*2, vulkan.BufferUsageIndex, vulkan.MemoryHostVisible)
	require.NoError(t, err)
	require.NoError(t, f.ctx.UploadBuffer(indices, []byte{0, 0, 1, 0, 2, 0, 2, 0, 3, 0, 0, 0}))
	return &testDrawable{
		buffers:  []*vulkan.Buffer{vertices, indices},
		model:    model,
		pipeline: p,
	}
}

// show spawns d and places it in the scene through its pipeline.
func (f *fixture) show(d *testDrawable) vulkan.DrawableHandle {
	h := f.ctx.Spawn(d)
	d.pipeline.AddDrawable(h)
	d.pipeline.CommitScene()
	return h
}
